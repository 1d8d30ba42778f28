package domain

import "time"

// Account is a wallet holder. Handle is the public name used by P2P senders;
// merchants are accounts with Merchant set.
type Account struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	Merchant  bool      `json:"merchant"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceKey addresses one balance row.
type BalanceKey struct {
	AccountID string
	Asset     string
}

// Less orders keys so that row locks are always taken in the same order.
func (k BalanceKey) Less(o BalanceKey) bool {
	if k.AccountID != o.AccountID {
		return k.AccountID < o.AccountID
	}
	return k.Asset < o.Asset
}

// Balance is the amount of one asset held by one account, in minor units.
type Balance struct {
	AccountID string    `json:"account_id"`
	Asset     string    `json:"asset"`
	Amount    int64     `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}
