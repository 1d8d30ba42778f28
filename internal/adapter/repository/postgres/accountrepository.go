package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/port"
)

type AccountRepository struct {
	DB *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{DB: pool}
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, "SELECT id, handle, merchant, created_at FROM accounts WHERE id = $1", id)
}

func (r *AccountRepository) FindByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	return r.findOne(ctx, "SELECT id, handle, merchant, created_at FROM accounts WHERE lower(handle) = lower($1)", handle)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg string) (*domain.Account, error) {
	exec := getExecutor(ctx, r.DB)
	var a domain.Account
	err := exec.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Handle, &a.Merchant, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts an account. Used by seeding and tests.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	exec := getExecutor(ctx, r.DB)
	_, err := exec.Exec(ctx,
		"INSERT INTO accounts (id, handle, merchant, created_at) VALUES ($1, $2, $3, $4)",
		a.ID, a.Handle, a.Merchant, a.CreatedAt)
	return err
}

// LockBalances must run inside a transaction. Rows are created first so that
// every key can be locked, then locked in (account, asset) order.
func (r *AccountRepository) LockBalances(ctx context.Context, keys []domain.BalanceKey) (map[domain.BalanceKey]int64, error) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return nil, errors.New("lock balances: no transaction in context")
	}

	sorted := append([]domain.BalanceKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	for _, k := range sorted {
		if _, err := tx.Exec(ctx,
			"INSERT INTO balances (account_id, asset, amount) VALUES ($1, $2, 0) ON CONFLICT DO NOTHING",
			k.AccountID, k.Asset); err != nil {
			if isForeignKeyViolation(err) {
				return nil, domain.ErrAccountNotFound
			}
			return nil, fmt.Errorf("ensure balance %s/%s: %w", k.AccountID, k.Asset, err)
		}
	}

	out := make(map[domain.BalanceKey]int64, len(sorted))
	for _, k := range sorted {
		var amount int64
		err := tx.QueryRow(ctx,
			"SELECT amount FROM balances WHERE account_id = $1 AND asset = $2 FOR UPDATE",
			k.AccountID, k.Asset).Scan(&amount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrAccountNotFound
			}
			return nil, fmt.Errorf("lock balance %s/%s: %w", k.AccountID, k.Asset, err)
		}
		out[k] = amount
	}
	return out, nil
}

func (r *AccountRepository) AdjustBalance(ctx context.Context, key domain.BalanceKey, delta int64) error {
	exec := getExecutor(ctx, r.DB)
	tag, err := exec.Exec(ctx,
		"UPDATE balances SET amount = amount + $3, updated_at = NOW() WHERE account_id = $1 AND asset = $2",
		key.AccountID, key.Asset, delta)
	if err != nil {
		if isConstraintViolation(err, "balances_amount_check") {
			return domain.ErrInsufficientBalance
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) ListBalances(ctx context.Context, accountID string) ([]domain.Balance, error) {
	exec := getExecutor(ctx, r.DB)
	rows, err := exec.Query(ctx,
		"SELECT account_id, asset, amount, updated_at FROM balances WHERE account_id = $1 ORDER BY asset", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Balance
	for rows.Next() {
		var b domain.Balance
		if err := rows.Scan(&b.AccountID, &b.Asset, &b.Amount, &b.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

var _ port.AccountRepository = (*AccountRepository)(nil)
