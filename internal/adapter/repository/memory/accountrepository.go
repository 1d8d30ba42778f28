package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/port"
)

type AccountRepository struct {
	s *Store
}

func NewAccountRepository(s *Store) *AccountRepository {
	return &AccountRepository{s: s}
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (r *AccountRepository) FindByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	for _, a := range r.s.accounts {
		if strings.EqualFold(a.Handle, handle) {
			return &a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *AccountRepository) LockBalances(ctx context.Context, keys []domain.BalanceKey) (map[domain.BalanceKey]int64, error) {
	if !inTx(ctx) {
		return nil, errors.New("lock balances: no transaction in context")
	}
	sorted := append([]domain.BalanceKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	out := make(map[domain.BalanceKey]int64, len(sorted))
	for _, k := range sorted {
		if _, ok := r.s.accounts[k.AccountID]; !ok {
			return nil, domain.ErrAccountNotFound
		}
		b, ok := r.s.balances[k]
		if !ok {
			b = domain.Balance{AccountID: k.AccountID, Asset: k.Asset, UpdatedAt: r.s.clock.Now()}
			r.s.balances[k] = b
		}
		out[k] = b.Amount
	}
	return out, nil
}

func (r *AccountRepository) AdjustBalance(ctx context.Context, key domain.BalanceKey, delta int64) error {
	defer r.s.lock(ctx)()
	b, ok := r.s.balances[key]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if b.Amount+delta < 0 {
		return domain.ErrInsufficientBalance
	}
	b.Amount += delta
	b.UpdatedAt = r.s.clock.Now()
	r.s.balances[key] = b
	return nil
}

func (r *AccountRepository) ListBalances(ctx context.Context, accountID string) ([]domain.Balance, error) {
	defer r.s.lock(ctx)()
	var items []domain.Balance
	for k, b := range r.s.balances {
		if k.AccountID == accountID {
			items = append(items, b)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Asset < items[j].Asset })
	return items, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
