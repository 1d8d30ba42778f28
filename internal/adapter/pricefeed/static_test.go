package pricefeed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/domain"
)

func TestParseRates(t *testing.T) {
	feed, err := ParseRates("XLM:USDC=0.1123, USDC:EURC=0.92")
	require.NoError(t, err)
	ctx := context.Background()

	r, err := feed.Rate(ctx, "XLM", "USDC")
	require.NoError(t, err)
	assert.Equal(t, "0.1123", r.String())

	r, err = feed.Rate(ctx, "EURC", "USDC")
	require.NoError(t, err)
	assert.Equal(t, "1.086956521739130434782608695652174", r.String())

	r, err = feed.Rate(ctx, "XLM", "EURC")
	require.NoError(t, err)
	assert.Equal(t, "0.103316", r.String())

	_, err = feed.Rate(ctx, "XLM", "BTC")
	assert.ErrorIs(t, err, domain.ErrUnsupportedAsset)
}

func TestParseRates_Invalid(t *testing.T) {
	for _, spec := range []string{"XLM-USDC=1", "XLM:USDC", "XLM:USDC=abc", "XLM:XLM=1", "XLM:USDC=0", "XLM:USDC=-2"} {
		_, err := ParseRates(spec)
		assert.Error(t, err, spec)
	}
}
