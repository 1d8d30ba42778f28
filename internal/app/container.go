// Package app assembles walletd's services on top of the connections opened
// by bootstrap.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cachemem "github.com/strogmv/walletd/internal/adapter/cache/memory"
	rediscache "github.com/strogmv/walletd/internal/adapter/cache/redis"
	"github.com/strogmv/walletd/internal/adapter/chain"
	"github.com/strogmv/walletd/internal/adapter/notifications"
	"github.com/strogmv/walletd/internal/adapter/pricefeed"
	"github.com/strogmv/walletd/internal/adapter/repository/memory"
	"github.com/strogmv/walletd/internal/adapter/repository/postgres"
	"github.com/strogmv/walletd/internal/bootstrap"
	"github.com/strogmv/walletd/internal/config"
	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/idempotency"
	"github.com/strogmv/walletd/internal/pkg/auth"
	"github.com/strogmv/walletd/internal/pkg/circuitbreaker"
	"github.com/strogmv/walletd/internal/pkg/logger"
	"github.com/strogmv/walletd/internal/pkg/report"
	"github.com/strogmv/walletd/internal/port"
	"github.com/strogmv/walletd/internal/service"
	transport "github.com/strogmv/walletd/internal/transport/http"
)

const (
	receiptLinkTTL   = 15 * time.Minute
	keyPurgeInterval = 10 * time.Minute
)

type Container struct {
	Config *config.Config
	Infra  *bootstrap.Infra

	KeyStore port.KeyStore
	Guard    *idempotency.Guard
	Ledger   port.Ledger
	Receipts port.Receipts
	Feed     *service.FeedHub
	Relay    *service.OutboxRelay
	Handler  http.Handler

	// purger is set when idempotency records live in postgres, which does
	// not expire rows on its own.
	purger *postgres.SystemRepository
}

func NewContainer(ctx context.Context, cfg *config.Config, infra *bootstrap.Infra) (*Container, error) {
	if infra == nil {
		infra = &bootstrap.Infra{}
	}
	c := &Container{Config: cfg, Infra: infra}

	var (
		accounts  port.AccountRepository
		transfers port.TransferRepository
		outbox    port.OutboxRepository
		txManager port.TxManager
		probes    []transport.Probe
	)
	if infra.Pool != nil {
		system := postgres.NewSystemRepository(infra.Pool)
		accounts = postgres.NewAccountRepository(infra.Pool)
		transfers = postgres.NewTransferRepository(infra.Pool)
		outbox = system
		txManager = postgres.NewTxManager(infra.Pool)
		probes = append(probes, transport.Probe{Name: "postgres", Pinger: system})
	} else {
		if !cfg.IsDev() {
			return nil, fmt.Errorf("a database is required outside dev/test")
		}
		store := memory.NewStore(nil)
		store.SeedAccount(domain.Account{ID: cfg.TreasuryAccountID, Handle: cfg.TreasuryAccountID}, nil)
		accounts = memory.NewAccountRepository(store)
		transfers = memory.NewTransferRepository(store)
		outbox = memory.NewOutboxRepository(store)
		txManager = memory.NewTxManager(store)
		logger.From(ctx).Warn("using in-memory ledger; balances are lost on restart")
	}

	switch cfg.IdempotencyBackend {
	case config.BackendRedis:
		if infra.Redis == nil {
			return nil, fmt.Errorf("redis key store selected but redis is not connected")
		}
		ks := rediscache.NewKeyStore(infra.Redis)
		c.KeyStore = ks
		probes = append(probes, transport.Probe{Name: "keystore", Pinger: ks})
	case config.BackendPostgres:
		if infra.Pool == nil {
			return nil, fmt.Errorf("postgres key store selected but postgres is not connected")
		}
		c.purger = postgres.NewSystemRepository(infra.Pool)
		c.KeyStore = c.purger
		probes = append(probes, transport.Probe{Name: "keystore", Pinger: c.purger})
	default:
		ks := cachemem.NewKeyStore(nil)
		c.KeyStore = ks
		probes = append(probes, transport.Probe{Name: "keystore", Pinger: ks})
	}

	c.Guard = idempotency.New(c.KeyStore, idempotency.Config{
		KeyPrefix:      cfg.IdempotencyKeyPrefix,
		DefaultTTL:     cfg.IdempotencyTTL,
		ReservationTTL: cfg.ReservationTTL,
		PendingWait:    cfg.PendingWait,
		StoreTimeout:   cfg.KeyStoreTimeout,
		MutatorTimeout: cfg.MutatorTimeout,
	}, idempotency.WithBreaker(circuitbreaker.NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown, 1)))
	if !c.Guard.Atomic() {
		logger.From(ctx).Warn("key store has no atomic reservation; duplicates are only coalesced within this process")
	}

	prices, err := pricefeed.ParseRates(cfg.SwapRates)
	if err != nil {
		return nil, fmt.Errorf("SWAP_RATES: %w", err)
	}
	ledger := service.NewLedgerImpl(accounts, transfers, outbox, chain.NewSimulated(""), prices, txManager, service.LedgerConfig{
		SupportedAssets:   cfg.SupportedAssets,
		TreasuryAccountID: cfg.TreasuryAccountID,
	})
	c.Ledger = ledger
	c.Receipts = service.NewReceiptImpl(ledger, infra.Files, report.NewGenerator(cfg.ReceiptVerifyURL), receiptLinkTTL)

	c.Feed = service.NewFeedHub(0)
	var publisher port.Publisher
	if infra.NATS != nil {
		publisher = infra.NATS
		probes = append(probes, transport.Probe{Name: "nats", Pinger: infra.NATS})
	}
	c.Relay = service.NewOutboxRelay(outbox, publisher, notifications.NewDispatcher(c.Feed), service.RelayConfig{
		Interval:  cfg.OutboxPollInterval,
		BatchSize: cfg.OutboxBatchSize,
	})

	policies, err := transport.ParsePolicyOverrides(transport.DefaultPolicies(), cfg.PolicyOverrides)
	if err != nil {
		return nil, fmt.Errorf("IDEMPOTENCY_POLICY_OVERRIDES: %w", err)
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		return nil, err
	}

	srv := &transport.Server{
		Ledger:   c.Ledger,
		Receipts: c.Receipts,
		Guard:    c.Guard,
		Tokens:   tokens,
		Feed:     c.Feed,
		Policies: policies,
		Probes:   probes,
	}
	c.Handler = srv.Router(transport.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout,
	})
	return c, nil
}

// RunKeyPurger deletes expired idempotency rows until ctx is cancelled. It
// returns immediately for key stores that expire entries themselves.
func (c *Container) RunKeyPurger(ctx context.Context) error {
	if c.purger == nil {
		return nil
	}
	ticker := time.NewTicker(keyPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := c.purger.PurgeExpired(ctx)
			if err != nil {
				logger.From(ctx).Warn("purge expired idempotency keys", "error", err)
				continue
			}
			if n > 0 {
				logger.From(ctx).Info("purged expired idempotency keys", "count", n)
			}
		}
	}
}
