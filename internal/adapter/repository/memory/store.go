package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/pkg/clock"
	"github.com/strogmv/walletd/internal/port"
)

type outboxRow struct {
	msg       port.OutboxMessage
	processed bool
	lastError string
}

// Store is the shared state behind the in-memory repositories. Transactions
// are serialized and rolled back by restoring a snapshot.
type Store struct {
	mu        sync.Mutex
	clock     clock.Clock
	accounts  map[string]domain.Account
	balances  map[domain.BalanceKey]domain.Balance
	transfers map[string]domain.Transfer
	entries   map[string][]domain.LedgerEntry
	outbox    []outboxRow
}

func NewStore(c clock.Clock) *Store {
	if c == nil {
		c = clock.Real{}
	}
	return &Store{
		clock:     c,
		accounts:  make(map[string]domain.Account),
		balances:  make(map[domain.BalanceKey]domain.Balance),
		transfers: make(map[string]domain.Transfer),
		entries:   make(map[string][]domain.LedgerEntry),
	}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock takes the store mutex unless ctx already runs inside WithTx.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	accounts  map[string]domain.Account
	balances  map[domain.BalanceKey]domain.Balance
	transfers map[string]domain.Transfer
	entries   map[string][]domain.LedgerEntry
	outbox    []outboxRow
}

func (s *Store) snapshotLocked() snapshot {
	return snapshot{
		accounts:  maps.Clone(s.accounts),
		balances:  maps.Clone(s.balances),
		transfers: maps.Clone(s.transfers),
		entries:   maps.Clone(s.entries),
		outbox:    append([]outboxRow(nil), s.outbox...),
	}
}

func (s *Store) restoreLocked(snap snapshot) {
	s.accounts = snap.accounts
	s.balances = snap.balances
	s.transfers = snap.transfers
	s.entries = snap.entries
	s.outbox = snap.outbox
}

// SeedAccount inserts an account with opening balances.
func (s *Store) SeedAccount(a domain.Account, balances map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.clock.Now()
	}
	s.accounts[a.ID] = a
	for asset, amount := range balances {
		k := domain.BalanceKey{AccountID: a.ID, Asset: asset}
		s.balances[k] = domain.Balance{AccountID: a.ID, Asset: asset, Amount: amount, UpdatedAt: s.clock.Now()}
	}
}

// Balance returns the current amount for one row, zero when absent.
func (s *Store) Balance(accountID, asset string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[domain.BalanceKey{AccountID: accountID, Asset: asset}].Amount
}

// TransferCount returns how many transfers were committed.
func (s *Store) TransferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transfers)
}

// TxManager serializes transactions over a Store.
type TxManager struct {
	s *Store
}

var _ port.TxManager = (*TxManager)(nil)

func NewTxManager(s *Store) *TxManager {
	return &TxManager{s: s}
}

func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	snap := m.s.snapshotLocked()
	defer func() {
		if p := recover(); p != nil {
			m.s.restoreLocked(snap)
			panic(p)
		}
		if err != nil {
			m.s.restoreLocked(snap)
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, true))
}
