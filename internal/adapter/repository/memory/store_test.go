package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/domain"
)

func TestTxManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	s.SeedAccount(domain.Account{ID: "alice", Handle: "alice"}, map[string]int64{"USDC": 100})
	accounts := NewAccountRepository(s)
	outbox := NewOutboxRepository(s)
	tx := NewTxManager(s)
	boom := errors.New("boom")

	err := tx.WithTx(ctx, func(ctx context.Context) error {
		key := domain.BalanceKey{AccountID: "alice", Asset: "USDC"}
		if _, err := accounts.LockBalances(ctx, []domain.BalanceKey{key}); err != nil {
			return err
		}
		require.NoError(t, accounts.AdjustBalance(ctx, key, -60))
		require.NoError(t, outbox.SaveEvent(ctx, "e1", "topic", []byte("{}")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(100), s.Balance("alice", "USDC"))
	pending, err := outbox.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAccountRepository_LockBalances(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	s.SeedAccount(domain.Account{ID: "alice", Handle: "Alice"}, map[string]int64{"USDC": 5})
	accounts := NewAccountRepository(s)
	tx := NewTxManager(s)

	_, err := accounts.LockBalances(ctx, []domain.BalanceKey{{AccountID: "alice", Asset: "USDC"}})
	assert.Error(t, err, "locking outside a transaction is a bug")

	err = tx.WithTx(ctx, func(ctx context.Context) error {
		got, err := accounts.LockBalances(ctx, []domain.BalanceKey{
			{AccountID: "alice", Asset: "XLM"},
			{AccountID: "alice", Asset: "USDC"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), got[domain.BalanceKey{AccountID: "alice", Asset: "USDC"}])
		assert.Equal(t, int64(0), got[domain.BalanceKey{AccountID: "alice", Asset: "XLM"}])

		_, err = accounts.LockBalances(ctx, []domain.BalanceKey{{AccountID: "ghost", Asset: "XLM"}})
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)

		err = accounts.AdjustBalance(ctx, domain.BalanceKey{AccountID: "alice", Asset: "USDC"}, -6)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		return nil
	})
	require.NoError(t, err)

	a, err := accounts.FindByHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", a.ID)
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	outbox := NewOutboxRepository(s)

	require.NoError(t, outbox.SaveEvent(ctx, "e1", "t", []byte("1")))
	require.NoError(t, outbox.SaveEvent(ctx, "e2", "t", []byte("2")))
	require.NoError(t, outbox.MarkFailed(ctx, "e1", "nats down"))

	pending, err := outbox.ListPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "e1", pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempts)

	require.NoError(t, outbox.MarkProcessed(ctx, "e1"))
	pending, err = outbox.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "e2", pending[0].ID)
}
