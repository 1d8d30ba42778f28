// Package bootstrap opens the connections walletd runs on.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	rediscache "github.com/strogmv/walletd/internal/adapter/cache/redis"
	"github.com/strogmv/walletd/internal/adapter/events/nats"
	"github.com/strogmv/walletd/internal/adapter/storage/s3"
	"github.com/strogmv/walletd/internal/config"
	"github.com/strogmv/walletd/internal/pkg/telemetry"
	"github.com/strogmv/walletd/internal/port"
)

// Infra is the set of external connections. Fields for services that are
// not configured stay nil.
type Infra struct {
	Pool  *pgxpool.Pool
	Redis *goredis.Client
	NATS  *nats.Client
	Files port.FileStorage

	shutdownTracer telemetry.ShutdownFunc
}

// Connect opens every configured connection. On failure the connections
// opened so far are closed.
func Connect(ctx context.Context, cfg *config.Config, version string) (_ *Infra, err error) {
	in := &Infra{}
	defer func() {
		if err != nil {
			in.Close(context.WithoutCancel(ctx))
		}
	}()

	in.shutdownTracer, err = telemetry.InitTracer(ctx, "walletd", version, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	if cfg.DatabaseURL != "" {
		in.Pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err = in.Pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		slog.Info("postgres connected")
	}

	if cfg.IdempotencyBackend == config.BackendRedis {
		in.Redis, err = rediscache.NewClient(ctx, rediscache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("redis connected", "addr", cfg.RedisAddr)
	}

	if cfg.NATSURL != "" {
		in.NATS, err = nats.NewClient(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		slog.Info("nats connected", "url", cfg.NATSURL)
	}

	if cfg.S3Bucket != "" {
		in.Files, err = s3.New(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		slog.Info("s3 configured", "bucket", cfg.S3Bucket)
	}

	return in, nil
}

// Close releases every open connection and flushes pending spans.
func (in *Infra) Close(ctx context.Context) error {
	var errs []error
	if in.NATS != nil {
		in.NATS.Close()
	}
	if in.Redis != nil {
		errs = append(errs, in.Redis.Close())
	}
	if in.Pool != nil {
		in.Pool.Close()
	}
	if in.shutdownTracer != nil {
		errs = append(errs, in.shutdownTracer(ctx))
	}
	return errors.Join(errs...)
}
