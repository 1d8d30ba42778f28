package domain

import "time"

// TopicTransferCompleted is the outbox topic (and NATS subject) for
// committed transfers.
const TopicTransferCompleted = "walletd.transfer.completed"

type TransferCompleted struct {
	TransferID    string       `json:"transfer_id"`
	Kind          TransferKind `json:"kind"`
	PayerID       string       `json:"payer_id"`
	PayeeID       string       `json:"payee_id"`
	Asset         string       `json:"asset"`
	Amount        int64        `json:"amount"`
	ToAsset       string       `json:"to_asset,omitempty"`
	ToAmount      int64        `json:"to_amount,omitempty"`
	TxHash        string       `json:"tx_hash"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}
