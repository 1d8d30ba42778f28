package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/port"
)

type TransferRepository struct {
	s *Store
}

func NewTransferRepository(s *Store) *TransferRepository {
	return &TransferRepository{s: s}
}

func (r *TransferRepository) Insert(ctx context.Context, t *domain.Transfer, entries []domain.LedgerEntry) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.transfers[t.ID]; exists {
		return fmt.Errorf("insert transfer: duplicate id %s", t.ID)
	}
	r.s.transfers[t.ID] = *t
	r.s.entries[t.ID] = append([]domain.LedgerEntry(nil), entries...)
	return nil
}

func (r *TransferRepository) FindByID(ctx context.Context, id string) (*domain.Transfer, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	return &t, nil
}

func (r *TransferRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Transfer, error) {
	defer r.s.lock(ctx)()
	var items []domain.Transfer
	for _, t := range r.s.transfers {
		if t.PayerID == accountID || t.PayeeID == accountID {
			items = append(items, t)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *TransferRepository) EntriesByTransfer(ctx context.Context, transferID string) ([]domain.LedgerEntry, error) {
	defer r.s.lock(ctx)()
	return append([]domain.LedgerEntry(nil), r.s.entries[transferID]...), nil
}

var _ port.TransferRepository = (*TransferRepository)(nil)
