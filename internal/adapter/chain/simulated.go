// Package chain settles transfers on a simulated network.
package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"

	"golang.org/x/crypto/sha3"

	"github.com/strogmv/walletd/internal/port"
)

// Simulated accepts every well-formed transfer and derives a deterministic
// Keccak-256 transaction hash from it.
type Simulated struct {
	network string
}

var _ port.Chain = (*Simulated)(nil)

func NewSimulated(network string) *Simulated {
	if network == "" {
		network = "walletd-sim"
	}
	return &Simulated{network: network}
}

func (s *Simulated) Submit(ctx context.Context, t port.ChainTransfer) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if t.TransferID == "" || t.From == "" || t.To == "" || t.Asset == "" || t.Amount <= 0 {
		return "", errors.New("chain: malformed transfer")
	}
	return TxHash(s.network, t), nil
}

// TxHash returns the 0x-prefixed Keccak-256 digest identifying t on network.
func TxHash(network string, t port.ChainTransfer) string {
	h := sha3.NewLegacyKeccak256()
	for _, part := range []string{network, t.TransferID, t.From, t.To, t.Asset, strconv.FormatInt(t.Amount, 10), t.Memo} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
