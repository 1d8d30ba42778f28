// Package idempotency makes a mutating operation safe to retry: for a given
// key the operation runs at most once and later calls either replay the
// stored result or are rejected, depending on the duplicate policy.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strogmv/walletd/internal/pkg/circuitbreaker"
	"github.com/strogmv/walletd/internal/pkg/clock"
	"github.com/strogmv/walletd/internal/pkg/logger"
	"github.com/strogmv/walletd/internal/port"
)

// Config holds the guard settings. Zero fields fall back to DefaultConfig.
type Config struct {
	KeyPrefix      string
	DefaultTTL     time.Duration
	ReservationTTL time.Duration
	PendingWait    time.Duration
	StoreTimeout   time.Duration
	MutatorTimeout time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:      "idempotency:",
		DefaultTTL:     24 * time.Hour,
		ReservationTTL: 2 * time.Minute,
		PendingWait:    3 * time.Second,
		StoreTimeout:   300 * time.Millisecond,
		MutatorTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.KeyPrefix == "" {
		c.KeyPrefix = d.KeyPrefix
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = d.DefaultTTL
	}
	if c.ReservationTTL <= 0 {
		c.ReservationTTL = d.ReservationTTL
	}
	if c.PendingWait <= 0 {
		c.PendingWait = d.PendingWait
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	if c.MutatorTimeout <= 0 {
		c.MutatorTimeout = d.MutatorTimeout
	}
	return c
}

// Operation is the guarded side effect. It returns the bytes to store and
// replay on duplicates.
type Operation func(ctx context.Context) ([]byte, error)

// Options configure one Execute call.
type Options struct {
	TTL       time.Duration
	Policy    Policy
	Operation string
}

// Outcome describes how a call was served.
type Outcome struct {
	Result   []byte
	Replayed bool
	StoredAt time.Time
	// Degraded is set when the key store failed at some step and the call
	// was served without full duplicate protection.
	Degraded bool
}

// Guard wraps operations with idempotency keys.
type Guard struct {
	store   port.KeyStore
	cond    port.ConditionalKeyStore
	breaker *circuitbreaker.Breaker
	clock   clock.Clock
	tracer  trace.Tracer
	cfg     Config
	flights *inflight
}

// Option customises a Guard.
type Option func(*Guard)

// WithBreaker routes every store call through b.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(g *Guard) { g.breaker = b }
}

// WithClock sets the clock used for record timestamps.
func WithClock(c clock.Clock) Option {
	return func(g *Guard) { g.clock = c }
}

// New creates a guard over store. When store also implements
// port.ConditionalKeyStore, reservations are taken atomically with SetNX.
func New(store port.KeyStore, cfg Config, opts ...Option) *Guard {
	g := &Guard{
		store:   store,
		clock:   clock.Real{},
		tracer:  otel.Tracer("github.com/strogmv/walletd/internal/idempotency"),
		cfg:     cfg.withDefaults(),
		flights: newInflight(),
	}
	if cond, ok := store.(port.ConditionalKeyStore); ok {
		g.cond = cond
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Atomic reports whether reservations use an atomic set-if-absent.
func (g *Guard) Atomic() bool {
	return g.cond != nil
}

// Execute runs op at most once per scopedKey.
//
// A finished duplicate is answered by opts.Policy without invoking op. A
// duplicate that arrives while the first call is still running waits for it,
// up to the configured pending wait, and then fails with
// ErrRequestInProgress. Errors returned by op are propagated unchanged and
// nothing is cached for them.
func (g *Guard) Execute(ctx context.Context, scopedKey string, op Operation, opts Options) (Outcome, error) {
	if err := validateKey(scopedKey, MaxScopedKeyLength); err != nil {
		return Outcome{}, err
	}
	if !opts.Policy.Valid() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrInvalidPolicy, opts.Policy)
	}
	if opts.TTL <= 0 {
		opts.TTL = g.cfg.DefaultTTL
	}
	if opts.Operation == "" {
		opts.Operation = "unknown"
	}

	ctx, span := g.tracer.Start(ctx, "idempotency.Execute", trace.WithAttributes(
		attribute.String("idempotency.operation", opts.Operation),
		attribute.String("idempotency.policy", opts.Policy.String()),
	))
	defer span.End()

	out, outcome, err := g.execute(ctx, g.cfg.KeyPrefix+scopedKey, op, opts)

	span.SetAttributes(attribute.String("idempotency.outcome", outcome))
	if err != nil && outcome != outcomeConflict && outcome != outcomeInProgress {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	guardRequests.WithLabelValues(opts.Operation, outcome).Inc()
	return out, err
}

func (g *Guard) execute(ctx context.Context, key string, op Operation, opts Options) (Outcome, string, error) {
	for {
		fl, leader := g.flights.acquire(key)
		if !leader {
			select {
			case <-fl.done:
			case <-ctx.Done():
				return Outcome{}, outcomeFailed, ctx.Err()
			}
			if !fl.ok {
				// The leader failed and cached nothing; compete again.
				continue
			}
			if opts.Policy == RaiseConflict {
				return Outcome{}, outcomeConflict, ErrDuplicateRequest
			}
			out := fl.out
			out.Replayed = true
			return out, outcomeReplayed, nil
		}

		return g.lead(ctx, key, op, opts, fl)
	}
}

// lead runs the store protocol for the process-local owner of key.
func (g *Guard) lead(ctx context.Context, key string, op Operation, opts Options, fl *flight) (out Outcome, outcome string, err error) {
	published := false
	defer func() {
		if !published {
			g.flights.release(key, fl, Outcome{}, false)
		}
	}()

	log := logger.From(ctx).With(
		slog.String("operation", opts.Operation),
		slog.String("policy", opts.Policy.String()),
	)

	degraded := false
	reserved := false
	var waitCtx context.Context
	var cancelWait context.CancelFunc = func() {}
	defer func() { cancelWait() }()
	b := &backoff.Backoff{Min: 20 * time.Millisecond, Max: 400 * time.Millisecond, Factor: 2, Jitter: true}

	// wait sleeps before the next look at the store and reports false once
	// the pending wait budget is spent.
	wait := func() (bool, error) {
		if waitCtx == nil {
			waitCtx, cancelWait = context.WithTimeout(ctx, g.cfg.PendingWait)
		}
		t := time.NewTimer(b.Duration())
		defer t.Stop()
		select {
		case <-t.C:
			return true, nil
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return false, err
			}
			return false, nil
		}
	}

lookup:
	for {
		rec, found, err := g.get(ctx, key)
		switch {
		case err != nil && ctx.Err() != nil:
			return Outcome{}, outcomeFailed, ctx.Err()
		case err != nil:
			degraded = true
			guardRequests.WithLabelValues(opts.Operation, outcomeDegradedRead).Inc()
			log.Warn("idempotency key store read failed, treating as miss", slog.Any("error", err))
		case found && rec.State == StateDone:
			if opts.Policy == RaiseConflict {
				return Outcome{}, outcomeConflict, ErrDuplicateRequest
			}
			out = Outcome{Result: rec.Result, Replayed: true, StoredAt: rec.StoredAt}
			g.publish(key, fl, out, &published)
			return out, outcomeReplayed, nil
		case found && rec.State == StatePending:
			more, werr := wait()
			if werr != nil {
				return Outcome{}, outcomeFailed, werr
			}
			if !more {
				return Outcome{}, outcomeInProgress, ErrRequestInProgress
			}
			continue lookup
		case found:
			// Undecodable record: drop it so the key can be reserved again.
			log.Warn("discarding unreadable idempotency record")
			if err := g.del(ctx, key); err != nil {
				log.Warn("idempotency record cleanup failed", slog.Any("error", err))
			}
		}

		if g.cond == nil {
			// Non-atomic store: the in-flight entry is the only mutual
			// exclusion, and only within this process.
			break lookup
		}

		pending, err := encodeRecord(Record{
			State:      StatePending,
			StoredAt:   g.clock.Now(),
			TTLSeconds: int64(g.cfg.ReservationTTL / time.Second),
			Operation:  opts.Operation,
		})
		if err != nil {
			return Outcome{}, outcomeFailed, err
		}
		stored, err := g.setNX(ctx, key, pending, g.cfg.ReservationTTL)
		switch {
		case err != nil && ctx.Err() != nil:
			return Outcome{}, outcomeFailed, ctx.Err()
		case err != nil:
			degraded = true
			guardRequests.WithLabelValues(opts.Operation, outcomeDegradedReserve).Inc()
			log.Warn("idempotency reservation failed, executing without it", slog.Any("error", err))
			break lookup
		case stored:
			reserved = true
			break lookup
		}

		// Another process reserved the key between our read and write.
		more, werr := wait()
		if werr != nil {
			return Outcome{}, outcomeFailed, werr
		}
		if !more {
			return Outcome{}, outcomeInProgress, ErrRequestInProgress
		}
	}

	result, err := g.run(ctx, key, op, reserved, log)
	if err != nil {
		return Outcome{}, outcomeFailed, err
	}

	out = Outcome{Result: result, StoredAt: g.clock.Now(), Degraded: degraded}
	done, err := encodeRecord(Record{
		State:      StateDone,
		Result:     result,
		StoredAt:   out.StoredAt,
		TTLSeconds: int64(opts.TTL / time.Second),
		Operation:  opts.Operation,
	})
	if err == nil {
		// The side effect is committed; persist even if the caller has gone.
		err = g.set(context.WithoutCancel(ctx), key, done, opts.TTL)
	}
	if err != nil {
		out.Degraded = true
		guardRequests.WithLabelValues(opts.Operation, outcomeDegradedWrite).Inc()
		log.Error("idempotency result not stored", slog.Any("error", err))
	}
	g.publish(key, fl, out, &published)
	return out, outcomeExecuted, nil
}

// run invokes op under the mutator timeout and releases the reservation if
// op fails or panics.
func (g *Guard) run(ctx context.Context, key string, op Operation, reserved bool, log *slog.Logger) (result []byte, err error) {
	release := func() {
		if !reserved {
			return
		}
		if derr := g.del(context.WithoutCancel(ctx), key); derr != nil {
			log.Warn("idempotency reservation not released, it will expire", slog.Any("error", derr))
		}
	}
	defer func() {
		if r := recover(); r != nil {
			release()
			panic(r)
		}
	}()

	opCtx, cancel := context.WithTimeout(ctx, g.cfg.MutatorTimeout)
	defer cancel()

	result, err = op(opCtx)
	if err != nil {
		release()
		return nil, err
	}
	return result, nil
}

func (g *Guard) publish(key string, fl *flight, out Outcome, published *bool) {
	*published = true
	g.flights.release(key, fl, out, true)
}

func (g *Guard) get(ctx context.Context, key string) (Record, bool, error) {
	var raw []byte
	var found bool
	err := g.call(ctx, "get", func(ctx context.Context) error {
		var err error
		raw, found, err = g.store.Get(ctx, key)
		return err
	})
	if err != nil || !found {
		return Record{}, false, err
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		logger.From(ctx).Warn("idempotency record unreadable", slog.Any("error", err))
		return Record{}, true, nil
	}
	return rec, true, nil
}

func (g *Guard) setNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var stored bool
	err := g.call(ctx, "setnx", func(ctx context.Context) error {
		var err error
		stored, err = g.cond.SetNX(ctx, key, value, ttl)
		return err
	})
	return stored, err
}

func (g *Guard) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.call(ctx, "set", func(ctx context.Context) error {
		return g.store.Set(ctx, key, value, ttl)
	})
}

func (g *Guard) del(ctx context.Context, key string) error {
	return g.call(ctx, "delete", func(ctx context.Context) error {
		return g.store.Delete(ctx, key)
	})
}

// call runs one store operation under the store timeout and the breaker.
// Every failure, including an open breaker, is reported as
// ErrKeyStoreUnavailable. Errors caused by the caller's own context ending
// are not held against the store.
func (g *Guard) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := g.breaker.Do(func() error {
		sctx, cancel := context.WithTimeout(ctx, g.cfg.StoreTimeout)
		defer cancel()
		return fn(sctx)
	}, func(error) bool { return ctx.Err() != nil })
	storeDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrKeyStoreUnavailable, name, err)
	}
	return nil
}

// IsConflict reports whether err is a duplicate rejection.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateRequest) || errors.Is(err, ErrRequestInProgress)
}
