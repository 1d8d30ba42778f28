package port

import (
	"context"

	"github.com/strogmv/walletd/internal/domain"
)

// AccountRepository defines storage operations for accounts and balances.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindByHandle resolves a public handle; it returns domain.ErrAccountNotFound
	// when nothing matches.
	FindByHandle(ctx context.Context, handle string) (*domain.Account, error)
	// LockBalances locks the given balance rows for the rest of the current
	// transaction, creating missing rows at zero, and returns their amounts.
	LockBalances(ctx context.Context, keys []domain.BalanceKey) (map[domain.BalanceKey]int64, error)
	// AdjustBalance adds delta to a row previously locked in this transaction.
	AdjustBalance(ctx context.Context, key domain.BalanceKey, delta int64) error
	ListBalances(ctx context.Context, accountID string) ([]domain.Balance, error)
}
