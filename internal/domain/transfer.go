package domain

import "time"

// TransferKind names the money-movement flow that produced a transfer.
type TransferKind string

const (
	KindPayment   TransferKind = "payment"
	KindP2P       TransferKind = "p2p_transfer"
	KindSwap      TransferKind = "swap"
	KindQRPayment TransferKind = "qr_payment"
)

// Transfer is the immutable header of one logical money movement.
// For swaps PayeeID is the treasury and ToAsset/ToAmount hold the credited leg.
type Transfer struct {
	ID        string       `json:"id"`
	Kind      TransferKind `json:"kind"`
	PayerID   string       `json:"payer_id"`
	PayeeID   string       `json:"payee_id"`
	Asset     string       `json:"asset"`
	Amount    int64        `json:"amount"`
	ToAsset   string       `json:"to_asset,omitempty"`
	ToAmount  int64        `json:"to_amount,omitempty"`
	Rate      string       `json:"rate,omitempty"`
	Memo      string       `json:"memo,omitempty"`
	TxHash    string       `json:"tx_hash"`
	CreatedAt time.Time    `json:"created_at"`
}

// LedgerEntry is one signed balance movement belonging to a transfer.
// The entries of a transfer sum to zero per asset.
type LedgerEntry struct {
	ID         string    `json:"id"`
	TransferID string    `json:"transfer_id"`
	AccountID  string    `json:"account_id"`
	Asset      string    `json:"asset"`
	Delta      int64     `json:"delta"`
	CreatedAt  time.Time `json:"created_at"`
}
