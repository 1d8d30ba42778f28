package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/pkg/clock"
	"github.com/strogmv/walletd/internal/pkg/correlation"
	"github.com/strogmv/walletd/internal/pkg/logger"
	"github.com/strogmv/walletd/internal/port"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// LedgerConfig holds the ledger's static settings.
type LedgerConfig struct {
	SupportedAssets   []string
	TreasuryAccountID string
}

// LedgerImpl moves money between accounts. Every movement is a single
// transaction: balance rows are locked in a fixed order, checked, settled on
// the chain and written together with the transfer, its entries and an
// outbox event.
type LedgerImpl struct {
	Accounts  port.AccountRepository
	Transfers port.TransferRepository
	Outbox    port.OutboxRepository
	Chain     port.Chain
	Prices    port.PriceFeed
	txManager port.TxManager

	assets   map[string]struct{}
	treasury string
	clock    clock.Clock
	newID    func() string
}

var _ port.Ledger = (*LedgerImpl)(nil)

func NewLedgerImpl(accounts port.AccountRepository, transfers port.TransferRepository, outbox port.OutboxRepository, chain port.Chain, prices port.PriceFeed, txManager port.TxManager, cfg LedgerConfig) *LedgerImpl {
	assets := make(map[string]struct{}, len(cfg.SupportedAssets))
	for _, a := range cfg.SupportedAssets {
		assets[strings.ToUpper(a)] = struct{}{}
	}
	return &LedgerImpl{
		Accounts:  accounts,
		Transfers: transfers,
		Outbox:    outbox,
		Chain:     chain,
		Prices:    prices,
		txManager: txManager,
		assets:    assets,
		treasury:  cfg.TreasuryAccountID,
		clock:     clock.Real{},
		newID:     newID,
	}
}

// WithClock replaces the clock used for timestamps.
func (s *LedgerImpl) WithClock(c clock.Clock) *LedgerImpl {
	s.clock = c
	return s
}

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func (s *LedgerImpl) supported(asset string) bool {
	_, ok := s.assets[asset]
	return ok
}

func (s *LedgerImpl) AttemptTransfer(ctx context.Context, cmd port.TransferCommand) (port.TransferResult, error) {
	var resp port.TransferResult
	if cmd.Amount <= 0 {
		return resp, domain.ErrInvalidAmount
	}
	if !s.supported(cmd.Asset) {
		return resp, fmt.Errorf("%w: %s", domain.ErrUnsupportedAsset, cmd.Asset)
	}
	if cmd.Kind == "" {
		cmd.Kind = domain.KindP2P
	}

	payee, err := s.resolvePayee(ctx, cmd)
	if err != nil {
		return resp, err
	}
	if payee.ID == cmd.PayerID {
		return resp, domain.ErrSelfTransferNotAllowed
	}
	if payee.ID == s.treasury {
		return resp, domain.ErrRecipientNotFound
	}

	var t *domain.Transfer
	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		payerKey := domain.BalanceKey{AccountID: cmd.PayerID, Asset: cmd.Asset}
		payeeKey := domain.BalanceKey{AccountID: payee.ID, Asset: cmd.Asset}
		balances, err := s.Accounts.LockBalances(ctx, []domain.BalanceKey{payerKey, payeeKey})
		if err != nil {
			return err
		}
		if balances[payerKey] < cmd.Amount {
			return domain.ErrInsufficientBalance
		}

		now := s.clock.Now()
		t = &domain.Transfer{
			ID:        s.newID(),
			Kind:      cmd.Kind,
			PayerID:   cmd.PayerID,
			PayeeID:   payee.ID,
			Asset:     cmd.Asset,
			Amount:    cmd.Amount,
			Memo:      cmd.Memo,
			CreatedAt: now,
		}
		t.TxHash, err = s.Chain.Submit(ctx, port.ChainTransfer{
			TransferID: t.ID,
			From:       t.PayerID,
			To:         t.PayeeID,
			Asset:      t.Asset,
			Amount:     t.Amount,
			Memo:       t.Memo,
		})
		if err != nil {
			return fmt.Errorf("submit to chain: %w", err)
		}

		return s.commit(ctx, t, []movement{
			{key: payerKey, delta: -cmd.Amount},
			{key: payeeKey, delta: cmd.Amount},
		})
	})
	if err != nil {
		return resp, err
	}

	logger.From(ctx).Info("transfer committed",
		"transfer_id", t.ID, "kind", t.Kind, "asset", t.Asset, "amount", t.Amount)

	return port.TransferResult{
		OK:         true,
		TransferID: t.ID,
		TxHash:     t.TxHash,
		Kind:       string(t.Kind),
		Payee:      payee.Handle,
		Asset:      t.Asset,
		Amount:     t.Amount,
		Memo:       t.Memo,
		CreatedAt:  t.CreatedAt,
	}, nil
}

// resolvePayee looks up a merchant by id for payments, and a user by handle
// or id otherwise.
func (s *LedgerImpl) resolvePayee(ctx context.Context, cmd port.TransferCommand) (*domain.Account, error) {
	ref := strings.TrimSpace(cmd.PayeeRef)
	if ref == "" {
		return nil, domain.ErrRecipientNotFound
	}

	var acc *domain.Account
	var err error
	switch cmd.Kind {
	case domain.KindPayment:
		acc, err = s.Accounts.FindByID(ctx, ref)
		if err == nil && !acc.Merchant {
			return nil, domain.ErrRecipientNotFound
		}
	default:
		acc, err = s.Accounts.FindByHandle(ctx, strings.TrimPrefix(ref, "@"))
		if errors.Is(err, domain.ErrAccountNotFound) {
			acc, err = s.Accounts.FindByID(ctx, ref)
		}
	}
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrRecipientNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *LedgerImpl) Swap(ctx context.Context, cmd port.SwapCommand) (port.SwapResult, error) {
	var resp port.SwapResult
	if cmd.Amount <= 0 {
		return resp, domain.ErrInvalidAmount
	}
	if cmd.FromAsset == cmd.ToAsset {
		return resp, domain.ErrSameAssetSwap
	}
	for _, a := range []string{cmd.FromAsset, cmd.ToAsset} {
		if !s.supported(a) {
			return resp, fmt.Errorf("%w: %s", domain.ErrUnsupportedAsset, a)
		}
	}
	if cmd.PayerID == s.treasury {
		return resp, domain.ErrSelfTransferNotAllowed
	}

	rate, err := s.Prices.Rate(ctx, cmd.FromAsset, cmd.ToAsset)
	if err != nil {
		return resp, fmt.Errorf("quote %s/%s: %w", cmd.FromAsset, cmd.ToAsset, err)
	}
	toAmount, err := convert(cmd.Amount, rate)
	if err != nil {
		return resp, err
	}

	var t *domain.Transfer
	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		payerFrom := domain.BalanceKey{AccountID: cmd.PayerID, Asset: cmd.FromAsset}
		payerTo := domain.BalanceKey{AccountID: cmd.PayerID, Asset: cmd.ToAsset}
		treasuryFrom := domain.BalanceKey{AccountID: s.treasury, Asset: cmd.FromAsset}
		treasuryTo := domain.BalanceKey{AccountID: s.treasury, Asset: cmd.ToAsset}
		balances, err := s.Accounts.LockBalances(ctx, []domain.BalanceKey{payerFrom, payerTo, treasuryFrom, treasuryTo})
		if err != nil {
			return err
		}
		if balances[payerFrom] < cmd.Amount {
			return domain.ErrInsufficientBalance
		}
		if balances[treasuryTo] < toAmount {
			return domain.ErrInsufficientLiquidity
		}

		t = &domain.Transfer{
			ID:        s.newID(),
			Kind:      domain.KindSwap,
			PayerID:   cmd.PayerID,
			PayeeID:   s.treasury,
			Asset:     cmd.FromAsset,
			Amount:    cmd.Amount,
			ToAsset:   cmd.ToAsset,
			ToAmount:  toAmount,
			Rate:      rate.Text('f'),
			CreatedAt: s.clock.Now(),
		}
		t.TxHash, err = s.Chain.Submit(ctx, port.ChainTransfer{
			TransferID: t.ID,
			From:       t.PayerID,
			To:         t.PayeeID,
			Asset:      t.Asset,
			Amount:     t.Amount,
			Memo:       "swap " + cmd.FromAsset + "->" + cmd.ToAsset,
		})
		if err != nil {
			return fmt.Errorf("submit to chain: %w", err)
		}

		return s.commit(ctx, t, []movement{
			{key: payerFrom, delta: -cmd.Amount},
			{key: treasuryFrom, delta: cmd.Amount},
			{key: treasuryTo, delta: -toAmount},
			{key: payerTo, delta: toAmount},
		})
	})
	if err != nil {
		return resp, err
	}

	logger.From(ctx).Info("swap committed",
		"transfer_id", t.ID, "from", t.Asset, "to", t.ToAsset, "amount", t.Amount, "to_amount", t.ToAmount)

	return port.SwapResult{
		OK:         true,
		TransferID: t.ID,
		TxHash:     t.TxHash,
		FromAsset:  t.Asset,
		ToAsset:    t.ToAsset,
		FromAmount: t.Amount,
		ToAmount:   t.ToAmount,
		Rate:       t.Rate,
		CreatedAt:  t.CreatedAt,
	}, nil
}

// convert applies rate to amount minor units, rounding down.
func convert(amount int64, rate *apd.Decimal) (int64, error) {
	c := apd.BaseContext.WithPrecision(34)
	product := new(apd.Decimal)
	if _, err := c.Mul(product, apd.New(amount, 0), rate); err != nil {
		return 0, fmt.Errorf("convert amount: %w", err)
	}
	floor := new(apd.Decimal)
	if _, err := c.Floor(floor, product); err != nil {
		return 0, fmt.Errorf("convert amount: %w", err)
	}
	out, err := floor.Int64()
	if err != nil {
		return 0, fmt.Errorf("convert amount: %w", err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%w: converts to zero", domain.ErrInvalidAmount)
	}
	return out, nil
}

func (s *LedgerImpl) PayQR(ctx context.Context, cmd port.QRPaymentCommand) (port.TransferResult, error) {
	qr, err := ParseQRPayload(cmd.Payload)
	if err != nil {
		return port.TransferResult{}, err
	}
	amount := qr.Amount
	switch {
	case amount == 0:
		amount = cmd.Amount
	case cmd.Amount != 0 && cmd.Amount != amount:
		return port.TransferResult{}, fmt.Errorf("%w: amount does not match the code", domain.ErrInvalidQRPayload)
	}
	return s.AttemptTransfer(ctx, port.TransferCommand{
		Kind:     domain.KindQRPayment,
		PayerID:  cmd.PayerID,
		PayeeRef: qr.To,
		Asset:    qr.Asset,
		Amount:   amount,
		Memo:     qr.Memo,
	})
}

type movement struct {
	key   domain.BalanceKey
	delta int64
}

// commit writes the transfer, its entries, the balance changes and the
// outbox event. It must run inside the transfer's transaction.
func (s *LedgerImpl) commit(ctx context.Context, t *domain.Transfer, moves []movement) error {
	entries := make([]domain.LedgerEntry, 0, len(moves))
	for _, m := range moves {
		entries = append(entries, domain.LedgerEntry{
			ID:         s.newID(),
			TransferID: t.ID,
			AccountID:  m.key.AccountID,
			Asset:      m.key.Asset,
			Delta:      m.delta,
			CreatedAt:  t.CreatedAt,
		})
	}
	if err := s.Transfers.Insert(ctx, t, entries); err != nil {
		return err
	}
	for _, m := range moves {
		if err := s.Accounts.AdjustBalance(ctx, m.key, m.delta); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(domain.TransferCompleted{
		TransferID:    t.ID,
		Kind:          t.Kind,
		PayerID:       t.PayerID,
		PayeeID:       t.PayeeID,
		Asset:         t.Asset,
		Amount:        t.Amount,
		ToAsset:       t.ToAsset,
		ToAmount:      t.ToAmount,
		TxHash:        t.TxHash,
		CorrelationID: correlation.ID(ctx),
		OccurredAt:    t.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.Outbox.SaveEvent(ctx, s.newID(), domain.TopicTransferCompleted, payload)
}

func (s *LedgerImpl) Balances(ctx context.Context, accountID string) ([]domain.Balance, error) {
	if _, err := s.Accounts.FindByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.Accounts.ListBalances(ctx, accountID)
}

// GetTransfer returns a transfer the account took part in. Other accounts'
// transfers are reported as not found.
func (s *LedgerImpl) GetTransfer(ctx context.Context, accountID, transferID string) (*domain.Transfer, error) {
	t, err := s.Transfers.FindByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.PayerID != accountID && t.PayeeID != accountID {
		return nil, domain.ErrTransferNotFound
	}
	return t, nil
}

func (s *LedgerImpl) ListTransfers(ctx context.Context, accountID string, limit int) ([]domain.Transfer, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.Transfers.ListByAccount(ctx, accountID, limit)
}
