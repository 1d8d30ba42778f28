package port

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/strogmv/walletd/internal/domain"
)

var validate = newValidator()

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Ledger is the mutator behind every money-movement endpoint. It is not
// idempotent on its own; callers wrap mutating calls with the idempotency guard.
type Ledger interface {
	AttemptTransfer(ctx context.Context, cmd TransferCommand) (TransferResult, error)
	Swap(ctx context.Context, cmd SwapCommand) (SwapResult, error)
	PayQR(ctx context.Context, cmd QRPaymentCommand) (TransferResult, error)

	Balances(ctx context.Context, accountID string) ([]domain.Balance, error)
	GetTransfer(ctx context.Context, accountID, transferID string) (*domain.Transfer, error)
	ListTransfers(ctx context.Context, accountID string, limit int) ([]domain.Transfer, error)
}

// Commands

type TransferCommand struct {
	Kind     domain.TransferKind
	PayerID  string
	PayeeRef string
	Asset    string
	Amount   int64
	Memo     string
}

type SwapCommand struct {
	PayerID   string
	FromAsset string
	ToAsset   string
	Amount    int64
}

type QRPaymentCommand struct {
	PayerID string
	Payload string
	// Amount overrides the amount encoded in the payload when non-zero.
	Amount int64
}

// Request/Response DTOs

type PaymentRequest struct {
	MerchantID string `json:"merchant_id" validate:"required,max=64"`
	Asset      string `json:"asset" validate:"required,uppercase,alphanum,max=12"`
	Amount     int64  `json:"amount" validate:"gt=0"`
	Memo       string `json:"memo" validate:"max=140"`
}

func (d *PaymentRequest) Validate() error {
	return validate.Struct(d)
}

type P2PTransferRequest struct {
	Recipient string `json:"recipient" validate:"required,max=64"`
	Asset     string `json:"asset" validate:"required,uppercase,alphanum,max=12"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Memo      string `json:"memo" validate:"max=140"`
}

func (d *P2PTransferRequest) Validate() error {
	return validate.Struct(d)
}

type SwapRequest struct {
	FromAsset string `json:"from_asset" validate:"required,uppercase,alphanum,max=12"`
	ToAsset   string `json:"to_asset" validate:"required,uppercase,alphanum,max=12"`
	Amount    int64  `json:"amount" validate:"gt=0"`
}

func (d *SwapRequest) Validate() error {
	return validate.Struct(d)
}

type QRPaymentRequest struct {
	QRPayload string `json:"qr_payload" validate:"required,max=512"`
	Amount    int64  `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

func (d *QRPaymentRequest) Validate() error {
	return validate.Struct(d)
}

type TransferResult struct {
	OK         bool      `json:"ok"`
	TransferID string    `json:"transfer_id"`
	TxHash     string    `json:"tx_hash"`
	Kind       string    `json:"kind"`
	Payee      string    `json:"payee"`
	Asset      string    `json:"asset"`
	Amount     int64     `json:"amount"`
	Memo       string    `json:"memo,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type SwapResult struct {
	OK         bool      `json:"ok"`
	TransferID string    `json:"transfer_id"`
	TxHash     string    `json:"tx_hash"`
	FromAsset  string    `json:"from_asset"`
	ToAsset    string    `json:"to_asset"`
	FromAmount int64     `json:"from_amount"`
	ToAmount   int64     `json:"to_amount"`
	Rate       string    `json:"rate"`
	CreatedAt  time.Time `json:"created_at"`
}

type BalanceResponse struct {
	Asset     string    `json:"asset"`
	Amount    int64     `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TransferResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	PayerID   string    `json:"payer_id"`
	PayeeID   string    `json:"payee_id"`
	Asset     string    `json:"asset"`
	Amount    int64     `json:"amount"`
	ToAsset   string    `json:"to_asset,omitempty"`
	ToAmount  int64     `json:"to_amount,omitempty"`
	Rate      string    `json:"rate,omitempty"`
	Memo      string    `json:"memo,omitempty"`
	TxHash    string    `json:"tx_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTransferResponse maps a stored transfer to its wire form.
func NewTransferResponse(t *domain.Transfer) TransferResponse {
	return TransferResponse{
		ID:        t.ID,
		Kind:      string(t.Kind),
		PayerID:   t.PayerID,
		PayeeID:   t.PayeeID,
		Asset:     t.Asset,
		Amount:    t.Amount,
		ToAsset:   t.ToAsset,
		ToAmount:  t.ToAmount,
		Rate:      t.Rate,
		Memo:      t.Memo,
		TxHash:    t.TxHash,
		CreatedAt: t.CreatedAt,
	}
}

type ArchiveReceiptResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
