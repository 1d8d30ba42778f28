package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/adapter/chain"
	"github.com/strogmv/walletd/internal/adapter/pricefeed"
	"github.com/strogmv/walletd/internal/adapter/repository/memory"
	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/pkg/clock"
	"github.com/strogmv/walletd/internal/pkg/correlation"
	"github.com/strogmv/walletd/internal/port"
)

const treasury = "treasury"

type ledgerFixture struct {
	store  *memory.Store
	outbox *memory.OutboxRepository
	ledger *LedgerImpl
	chain  port.Chain
}

type failingChain struct{}

func (failingChain) Submit(context.Context, port.ChainTransfer) (string, error) {
	return "", errors.New("node unavailable")
}

func newLedgerFixture(t *testing.T, c port.Chain) *ledgerFixture {
	t.Helper()

	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := memory.NewStore(clk)
	store.SeedAccount(domain.Account{ID: "alice", Handle: "alice"}, map[string]int64{"XLM": 10_000, "USDC": 500})
	store.SeedAccount(domain.Account{ID: "bob", Handle: "bob"}, map[string]int64{"XLM": 0})
	store.SeedAccount(domain.Account{ID: "coffee-shop", Handle: "coffee", Merchant: true}, nil)
	store.SeedAccount(domain.Account{ID: treasury, Handle: "treasury"}, map[string]int64{"XLM": 1_000_000, "USDC": 1_000})

	prices, err := pricefeed.ParseRates("XLM:USDC=0.1123,USDC:EURC=0.92")
	require.NoError(t, err)

	if c == nil {
		c = chain.NewSimulated("testnet")
	}
	outbox := memory.NewOutboxRepository(store)
	ledger := NewLedgerImpl(
		memory.NewAccountRepository(store),
		memory.NewTransferRepository(store),
		outbox,
		c,
		prices,
		memory.NewTxManager(store),
		LedgerConfig{SupportedAssets: []string{"XLM", "USDC", "EURC"}, TreasuryAccountID: treasury},
	).WithClock(clk)

	return &ledgerFixture{store: store, outbox: outbox, ledger: ledger, chain: c}
}

func TestLedger_P2PTransfer(t *testing.T) {
	f := newLedgerFixture(t, nil)
	ctx := correlation.Set(context.Background(), "req-1")

	res, err := f.ledger.AttemptTransfer(ctx, port.TransferCommand{
		Kind:     domain.KindP2P,
		PayerID:  "alice",
		PayeeRef: "@Bob",
		Asset:    "XLM",
		Amount:   2_500,
		Memo:     "lunch",
	})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "bob", res.Payee)
	assert.Equal(t, "p2p_transfer", res.Kind)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, res.TxHash)
	assert.Equal(t, int64(7_500), f.store.Balance("alice", "XLM"))
	assert.Equal(t, int64(2_500), f.store.Balance("bob", "XLM"))

	stored, err := f.ledger.GetTransfer(ctx, "bob", res.TransferID)
	require.NoError(t, err)
	assert.Equal(t, "lunch", stored.Memo)

	_, err = f.ledger.GetTransfer(ctx, "coffee-shop", res.TransferID)
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)

	pending, err := f.outbox.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.TopicTransferCompleted, pending[0].Topic)

	var evt domain.TransferCompleted
	require.NoError(t, json.Unmarshal(pending[0].Payload, &evt))
	assert.Equal(t, res.TransferID, evt.TransferID)
	assert.Equal(t, "req-1", evt.CorrelationID)
	assert.Equal(t, "bob", evt.PayeeID)
}

func TestLedger_TransferRejections(t *testing.T) {
	tests := []struct {
		name string
		cmd  port.TransferCommand
		want error
	}{
		{
			name: "insufficient balance",
			cmd:  port.TransferCommand{PayerID: "alice", PayeeRef: "bob", Asset: "XLM", Amount: 10_001},
			want: domain.ErrInsufficientBalance,
		},
		{
			name: "self transfer",
			cmd:  port.TransferCommand{PayerID: "alice", PayeeRef: "alice", Asset: "XLM", Amount: 1},
			want: domain.ErrSelfTransferNotAllowed,
		},
		{
			name: "unsupported asset",
			cmd:  port.TransferCommand{PayerID: "alice", PayeeRef: "bob", Asset: "DOGE", Amount: 1},
			want: domain.ErrUnsupportedAsset,
		},
		{
			name: "zero amount",
			cmd:  port.TransferCommand{PayerID: "alice", PayeeRef: "bob", Asset: "XLM"},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "unknown recipient",
			cmd:  port.TransferCommand{PayerID: "alice", PayeeRef: "carol", Asset: "XLM", Amount: 1},
			want: domain.ErrRecipientNotFound,
		},
		{
			name: "treasury recipient",
			cmd:  port.TransferCommand{PayerID: "alice", PayeeRef: treasury, Asset: "XLM", Amount: 1},
			want: domain.ErrRecipientNotFound,
		},
		{
			name: "payment to non-merchant",
			cmd:  port.TransferCommand{Kind: domain.KindPayment, PayerID: "alice", PayeeRef: "bob", Asset: "XLM", Amount: 1},
			want: domain.ErrRecipientNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t, nil)
			_, err := f.ledger.AttemptTransfer(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, f.store.TransferCount())
			assert.Equal(t, int64(10_000), f.store.Balance("alice", "XLM"))
		})
	}
}

func TestLedger_MerchantPayment(t *testing.T) {
	f := newLedgerFixture(t, nil)

	res, err := f.ledger.AttemptTransfer(context.Background(), port.TransferCommand{
		Kind:     domain.KindPayment,
		PayerID:  "alice",
		PayeeRef: "coffee-shop",
		Asset:    "USDC",
		Amount:   450,
	})
	require.NoError(t, err)
	assert.Equal(t, "payment", res.Kind)
	assert.Equal(t, int64(50), f.store.Balance("alice", "USDC"))
	assert.Equal(t, int64(450), f.store.Balance("coffee-shop", "USDC"))
}

func TestLedger_ChainFailureRollsBack(t *testing.T) {
	f := newLedgerFixture(t, failingChain{})
	ctx := context.Background()

	_, err := f.ledger.AttemptTransfer(ctx, port.TransferCommand{PayerID: "alice", PayeeRef: "bob", Asset: "XLM", Amount: 100})
	require.ErrorContains(t, err, "node unavailable")

	assert.Equal(t, int64(10_000), f.store.Balance("alice", "XLM"))
	assert.Equal(t, int64(0), f.store.Balance("bob", "XLM"))
	assert.Equal(t, 0, f.store.TransferCount())

	pending, err := f.outbox.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLedger_Swap(t *testing.T) {
	f := newLedgerFixture(t, nil)

	res, err := f.ledger.Swap(context.Background(), port.SwapCommand{
		PayerID:   "alice",
		FromAsset: "XLM",
		ToAsset:   "USDC",
		Amount:    1_000,
	})
	require.NoError(t, err)

	// 1000 * 0.1123 = 112.3, rounded down.
	assert.Equal(t, int64(112), res.ToAmount)
	assert.Equal(t, "0.1123", res.Rate)
	assert.Equal(t, int64(9_000), f.store.Balance("alice", "XLM"))
	assert.Equal(t, int64(612), f.store.Balance("alice", "USDC"))
	assert.Equal(t, int64(1_001_000), f.store.Balance(treasury, "XLM"))
	assert.Equal(t, int64(888), f.store.Balance(treasury, "USDC"))
}

func TestLedger_SwapRejections(t *testing.T) {
	tests := []struct {
		name string
		cmd  port.SwapCommand
		want error
	}{
		{
			name: "same asset",
			cmd:  port.SwapCommand{PayerID: "alice", FromAsset: "XLM", ToAsset: "XLM", Amount: 10},
			want: domain.ErrSameAssetSwap,
		},
		{
			name: "insufficient balance",
			cmd:  port.SwapCommand{PayerID: "alice", FromAsset: "USDC", ToAsset: "XLM", Amount: 501},
			want: domain.ErrInsufficientBalance,
		},
		{
			name: "insufficient liquidity",
			cmd:  port.SwapCommand{PayerID: "alice", FromAsset: "XLM", ToAsset: "USDC", Amount: 10_000},
			want: domain.ErrInsufficientLiquidity,
		},
		{
			name: "rounds to zero",
			cmd:  port.SwapCommand{PayerID: "alice", FromAsset: "XLM", ToAsset: "USDC", Amount: 5},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "unsupported asset",
			cmd:  port.SwapCommand{PayerID: "alice", FromAsset: "XLM", ToAsset: "BTC", Amount: 5},
			want: domain.ErrUnsupportedAsset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t, nil)
			_, err := f.ledger.Swap(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, f.store.TransferCount())
		})
	}
}

func TestLedger_PayQR(t *testing.T) {
	f := newLedgerFixture(t, nil)
	ctx := context.Background()

	res, err := f.ledger.PayQR(ctx, port.QRPaymentCommand{
		PayerID: "alice",
		Payload: "wallet:pay?to=coffee&asset=XLM&amount=300&memo=latte",
	})
	require.NoError(t, err)
	assert.Equal(t, "qr_payment", res.Kind)
	assert.Equal(t, int64(300), res.Amount)
	assert.Equal(t, "latte", res.Memo)
	assert.Equal(t, int64(300), f.store.Balance("coffee-shop", "XLM"))

	_, err = f.ledger.PayQR(ctx, port.QRPaymentCommand{
		PayerID: "alice",
		Payload: "wallet:pay?to=coffee&asset=XLM&amount=300",
		Amount:  301,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQRPayload)

	res, err = f.ledger.PayQR(ctx, port.QRPaymentCommand{
		PayerID: "alice",
		Payload: "wallet:pay?to=bob&asset=XLM",
		Amount:  25,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.Amount)

	_, err = f.ledger.PayQR(ctx, port.QRPaymentCommand{PayerID: "alice", Payload: "https://example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidQRPayload)
}

func TestLedger_ReadModels(t *testing.T) {
	f := newLedgerFixture(t, nil)
	ctx := context.Background()

	for range 3 {
		_, err := f.ledger.AttemptTransfer(ctx, port.TransferCommand{PayerID: "alice", PayeeRef: "bob", Asset: "XLM", Amount: 10})
		require.NoError(t, err)
	}

	items, err := f.ledger.ListTransfers(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = f.ledger.ListTransfers(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	balances, err := f.ledger.Balances(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "USDC", balances[0].Asset)
	assert.Equal(t, int64(9_970), balances[1].Amount)

	_, err = f.ledger.Balances(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
