package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/pkg/logger"
	"github.com/strogmv/walletd/internal/port"
)

// RelayConfig tunes the outbox relay.
type RelayConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	return c
}

// OutboxRelay drains committed outbox events to the message bus and the
// live feed. Events are delivered in commit order; a failed publish stops
// the batch and the relay backs off before the next pass.
type OutboxRelay struct {
	Outbox    port.OutboxRepository
	Publisher port.Publisher
	Notifier  port.NotificationDispatcher

	cfg     RelayConfig
	backoff *backoff.Backoff
}

// NewOutboxRelay builds a relay. publisher and notifier may be nil.
func NewOutboxRelay(outbox port.OutboxRepository, publisher port.Publisher, notifier port.NotificationDispatcher, cfg RelayConfig) *OutboxRelay {
	cfg = cfg.withDefaults()
	return &OutboxRelay{
		Outbox:    outbox,
		Publisher: publisher,
		Notifier:  notifier,
		cfg:       cfg,
		backoff: &backoff.Backoff{
			Min:    cfg.Interval,
			Max:    time.Minute,
			Factor: 2,
			Jitter: true,
		},
	}
}

// Run flushes the outbox until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	log := logger.From(ctx)
	r.backoff.Reset()
	for {
		wait := r.cfg.Interval
		if _, err := r.Flush(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait = r.backoff.Duration()
			log.Warn("outbox flush failed", "error", err, "retry_in", wait, "attempts", r.backoff.Attempt())
		} else {
			r.backoff.Reset()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Flush delivers one batch of pending events and returns how many were
// marked processed.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	pending, err := r.Outbox.ListPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	delivered := 0
	for _, msg := range pending {
		if msg.Attempts >= r.cfg.MaxAttempts {
			logger.From(ctx).Error("outbox event dropped", "id", msg.ID, "topic", msg.Topic, "attempts", msg.Attempts)
			if err := r.Outbox.MarkProcessed(ctx, msg.ID); err != nil {
				return delivered, fmt.Errorf("mark processed %s: %w", msg.ID, err)
			}
			continue
		}

		if err := r.publish(ctx, msg); err != nil {
			if markErr := r.Outbox.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				err = errors.Join(err, markErr)
			}
			return delivered, fmt.Errorf("publish %s: %w", msg.ID, err)
		}
		r.notify(ctx, msg)

		if err := r.Outbox.MarkProcessed(ctx, msg.ID); err != nil {
			return delivered, fmt.Errorf("mark processed %s: %w", msg.ID, err)
		}
		delivered++
	}
	return delivered, nil
}

func (r *OutboxRelay) publish(ctx context.Context, msg port.OutboxMessage) error {
	if r.Publisher == nil {
		return nil
	}
	return r.Publisher.Publish(ctx, msg.Topic, msg.Payload)
}

// notify pushes transfer events to both parties' live feeds. Feed delivery
// is best effort and never fails the event.
func (r *OutboxRelay) notify(ctx context.Context, msg port.OutboxMessage) {
	if r.Notifier == nil || msg.Topic != domain.TopicTransferCompleted {
		return
	}
	var evt domain.TransferCompleted
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		logger.From(ctx).Warn("outbox event undecodable", "id", msg.ID, "error", err)
		return
	}

	for _, userID := range []string{evt.PayerID, evt.PayeeID} {
		if userID == "" {
			continue
		}
		err := r.Notifier.Dispatch(ctx, port.NotificationMessage{
			Event:    msg.Topic,
			UserID:   userID,
			EntityID: evt.TransferID,
			Payload:  msg.Payload,
		})
		if err != nil {
			logger.From(ctx).Warn("feed notification failed", "id", msg.ID, "user_id", userID, "error", err)
		}
	}
}
