package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/port"
)

func TestSimulated_Submit(t *testing.T) {
	c := NewSimulated("")
	tr := port.ChainTransfer{TransferID: "t1", From: "alice", To: "bob", Asset: "USDC", Amount: 100}

	h1, err := c.Submit(context.Background(), tr)
	require.NoError(t, err)
	assert.Len(t, h1, 66)
	assert.Equal(t, "0x", h1[:2])

	h2, err := c.Submit(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "hash is deterministic")

	tr.Amount = 101
	h3, err := c.Submit(context.Background(), tr)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestSimulated_RejectsMalformed(t *testing.T) {
	c := NewSimulated("test")
	_, err := c.Submit(context.Background(), port.ChainTransfer{TransferID: "t1", From: "a", To: "b", Asset: "XLM"})
	assert.Error(t, err)
}
