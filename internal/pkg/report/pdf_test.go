package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/domain"
)

func TestTransferReceipt(t *testing.T) {
	g := NewGenerator("https://explorer.example.com/tx/")
	pdf, err := g.TransferReceipt(&domain.Transfer{
		ID:        "t-1",
		Kind:      domain.KindSwap,
		PayerID:   "alice",
		PayeeID:   "treasury",
		Asset:     "XLM",
		Amount:    1000,
		ToAsset:   "USDC",
		ToAmount:  112,
		Rate:      "0.1123",
		TxHash:    "0xabc",
		CreatedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}
