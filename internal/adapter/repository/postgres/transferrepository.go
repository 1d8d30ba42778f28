package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/port"
)

type TransferRepository struct {
	DB *pgxpool.Pool
}

func NewTransferRepository(pool *pgxpool.Pool) *TransferRepository {
	return &TransferRepository{DB: pool}
}

const transferColumns = "id, kind, payer_id, payee_id, asset, amount, to_asset, to_amount, rate, memo, tx_hash, created_at"

func (r *TransferRepository) Insert(ctx context.Context, t *domain.Transfer, entries []domain.LedgerEntry) error {
	exec := getExecutor(ctx, r.DB)
	_, err := exec.Exec(ctx,
		"INSERT INTO transfers ("+transferColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		t.ID, string(t.Kind), t.PayerID, t.PayeeID, t.Asset, t.Amount, t.ToAsset, t.ToAmount, t.Rate, t.Memo, t.TxHash, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			"INSERT INTO ledger_entries (id, transfer_id, account_id, asset, delta, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
			e.ID, e.TransferID, e.AccountID, e.Asset, e.Delta, e.CreatedAt)
	}
	if err := sendBatch(ctx, exec, batch); err != nil {
		return fmt.Errorf("insert ledger entries: %w", err)
	}
	return nil
}

func sendBatch(ctx context.Context, exec executor, batch *pgx.Batch) error {
	sender, ok := exec.(interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	})
	if !ok {
		return errors.New("executor does not support batches")
	}
	return sender.SendBatch(ctx, batch).Close()
}

func (r *TransferRepository) FindByID(ctx context.Context, id string) (*domain.Transfer, error) {
	exec := getExecutor(ctx, r.DB)
	t, err := scanTransfer(exec.QueryRow(ctx, "SELECT "+transferColumns+" FROM transfers WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransferNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TransferRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Transfer, error) {
	exec := getExecutor(ctx, r.DB)
	rows, err := exec.Query(ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE payer_id = $1 OR payee_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

func (r *TransferRepository) EntriesByTransfer(ctx context.Context, transferID string) ([]domain.LedgerEntry, error) {
	exec := getExecutor(ctx, r.DB)
	rows, err := exec.Query(ctx,
		"SELECT id, transfer_id, account_id, asset, delta, created_at FROM ledger_entries WHERE transfer_id = $1 ORDER BY id",
		transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransferID, &e.AccountID, &e.Asset, &e.Delta, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	var t domain.Transfer
	var kind string
	err := row.Scan(&t.ID, &kind, &t.PayerID, &t.PayeeID, &t.Asset, &t.Amount, &t.ToAsset, &t.ToAmount, &t.Rate, &t.Memo, &t.TxHash, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Kind = domain.TransferKind(kind)
	return &t, nil
}

var _ port.TransferRepository = (*TransferRepository)(nil)
