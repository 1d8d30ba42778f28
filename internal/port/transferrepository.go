package port

import (
	"context"

	"github.com/strogmv/walletd/internal/domain"
)

// TransferRepository stores transfers together with their ledger entries.
type TransferRepository interface {
	Insert(ctx context.Context, t *domain.Transfer, entries []domain.LedgerEntry) error
	FindByID(ctx context.Context, id string) (*domain.Transfer, error)
	// ListByAccount returns transfers the account paid or received, newest first.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Transfer, error)
	EntriesByTransfer(ctx context.Context, transferID string) ([]domain.LedgerEntry, error)
}
