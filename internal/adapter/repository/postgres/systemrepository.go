package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strogmv/walletd/internal/port"
)

// SystemRepository implements the idempotency KeyStore and OutboxRepository via Postgres.
type SystemRepository struct {
	DB *pgxpool.Pool
}

func NewSystemRepository(pool *pgxpool.Pool) *SystemRepository {
	return &SystemRepository{DB: pool}
}

// ---------- KeyStore ----------
// Key store calls never join a ledger transaction: a record must survive
// the rollback of the operation it guards.

func (r *SystemRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := r.DB.QueryRow(ctx,
		"SELECT response FROM idempotency_keys WHERE key = $1 AND expires_at > NOW()", key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, true, nil
}

func (r *SystemRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO idempotency_keys (key, response, expires_at)
		 VALUES ($1, $2, NOW() + $3::float8 * INTERVAL '1 millisecond')
		 ON CONFLICT (key) DO UPDATE SET response = EXCLUDED.response, expires_at = EXCLUDED.expires_at`,
		key, value, ttl.Milliseconds())
	return err
}

// SetNX inserts the key unless a live row exists. An expired row is
// reclaimed in the same statement.
func (r *SystemRepository) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`INSERT INTO idempotency_keys (key, response, expires_at)
		 VALUES ($1, $2, NOW() + $3::float8 * INTERVAL '1 millisecond')
		 ON CONFLICT (key) DO UPDATE SET response = EXCLUDED.response, expires_at = EXCLUDED.expires_at
		 WHERE idempotency_keys.expires_at <= NOW()`,
		key, value, ttl.Milliseconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SystemRepository) Delete(ctx context.Context, key string) error {
	_, err := r.DB.Exec(ctx, "DELETE FROM idempotency_keys WHERE key = $1", key)
	return err
}

// PurgeExpired removes expired keys and returns how many were deleted.
func (r *SystemRepository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.DB.Exec(ctx, "DELETE FROM idempotency_keys WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SystemRepository) Ping(ctx context.Context) error {
	return r.DB.Ping(ctx)
}

// ---------- OutboxRepository ----------

func (r *SystemRepository) SaveEvent(ctx context.Context, id, topic string, payload []byte) error {
	exec := getExecutor(ctx, r.DB)
	_, err := exec.Exec(ctx,
		"INSERT INTO outbox_events (id, topic, payload) VALUES ($1, $2, $3)",
		id, topic, payload)
	return err
}

func (r *SystemRepository) ListPending(ctx context.Context, limit int) ([]port.OutboxMessage, error) {
	exec := getExecutor(ctx, r.DB)
	rows, err := exec.Query(ctx,
		`SELECT id, topic, payload, attempts, created_at FROM outbox_events
		 WHERE processed_at IS NULL ORDER BY created_at, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []port.OutboxMessage
	for rows.Next() {
		var m port.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.Attempts, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *SystemRepository) MarkProcessed(ctx context.Context, id string) error {
	exec := getExecutor(ctx, r.DB)
	_, err := exec.Exec(ctx, "UPDATE outbox_events SET processed_at = NOW() WHERE id = $1", id)
	return err
}

func (r *SystemRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	exec := getExecutor(ctx, r.DB)
	_, err := exec.Exec(ctx,
		"UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1", id, reason)
	return err
}

// Compile-time interface checks.
var _ port.ConditionalKeyStore = (*SystemRepository)(nil)
var _ port.OutboxRepository = (*SystemRepository)(nil)
