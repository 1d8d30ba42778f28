package memory

import (
	"context"

	"github.com/strogmv/walletd/internal/port"
)

type OutboxRepository struct {
	s *Store
}

func NewOutboxRepository(s *Store) *OutboxRepository {
	return &OutboxRepository{s: s}
}

func (r *OutboxRepository) SaveEvent(ctx context.Context, id, topic string, payload []byte) error {
	defer r.s.lock(ctx)()
	r.s.outbox = append(r.s.outbox, outboxRow{msg: port.OutboxMessage{
		ID:        id,
		Topic:     topic,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: r.s.clock.Now(),
	}})
	return nil
}

func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]port.OutboxMessage, error) {
	defer r.s.lock(ctx)()
	var items []port.OutboxMessage
	for _, row := range r.s.outbox {
		if row.processed {
			continue
		}
		items = append(items, row.msg)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()
	for i := range r.s.outbox {
		if r.s.outbox[i].msg.ID == id {
			r.s.outbox[i].processed = true
		}
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	defer r.s.lock(ctx)()
	for i := range r.s.outbox {
		if r.s.outbox[i].msg.ID == id {
			r.s.outbox[i].msg.Attempts++
			r.s.outbox[i].lastError = reason
		}
	}
	return nil
}

var _ port.OutboxRepository = (*OutboxRepository)(nil)
