package port

import (
	"context"
	"time"
)

// OutboxMessage represents a pending outbox event.
type OutboxMessage struct {
	ID        string
	Topic     string
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
}

// OutboxRepository stores and retrieves outbox messages for reliable event delivery.
type OutboxRepository interface {
	// SaveEvent persists an outbox event within the current transaction.
	SaveEvent(ctx context.Context, id, topic string, payload []byte) error
	// ListPending returns unprocessed messages, oldest first, up to limit.
	ListPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	// MarkProcessed marks a message as delivered.
	MarkProcessed(ctx context.Context, id string) error
	// MarkFailed records a failed delivery attempt.
	MarkFailed(ctx context.Context, id string, reason string) error
}
