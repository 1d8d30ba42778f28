package port

import (
	"context"

	"github.com/cockroachdb/apd/v3"
)

// ChainTransfer is what the ledger hands to the settlement network.
type ChainTransfer struct {
	TransferID string
	From       string
	To         string
	Asset      string
	Amount     int64
	Memo       string
}

// Chain submits settled movements to the blockchain layer and returns the
// transaction hash.
type Chain interface {
	Submit(ctx context.Context, t ChainTransfer) (txHash string, err error)
}

// PriceFeed quotes how many units of to one unit of from buys.
type PriceFeed interface {
	Rate(ctx context.Context, from, to string) (*apd.Decimal, error)
}
