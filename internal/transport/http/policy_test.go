package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/idempotency"
)

func TestParsePolicyOverrides(t *testing.T) {
	got, err := ParsePolicyOverrides(DefaultPolicies(), " swap=return_cached , PAYMENT=raise_conflict")
	require.NoError(t, err)
	assert.Equal(t, idempotency.ReturnCached, got.For(OpSwap))
	assert.Equal(t, idempotency.RaiseConflict, got.For(OpPayment))
	assert.Equal(t, idempotency.ReturnCached, got.For(OpP2P))

	// The base table is untouched.
	assert.Equal(t, idempotency.RaiseConflict, DefaultPolicies().For(OpSwap))

	got, err = ParsePolicyOverrides(DefaultPolicies(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicies(), got)
}

func TestParsePolicyOverrides_Invalid(t *testing.T) {
	for _, in := range []string{"swap", "refund=return_cached", "swap=maybe", "=raise_conflict"} {
		_, err := ParsePolicyOverrides(DefaultPolicies(), in)
		assert.ErrorIs(t, err, idempotency.ErrInvalidPolicy, in)
		assert.Equal(t, idempotency.KindInvalidFormat, idempotency.KindOf(err), in)
	}
}

func TestMarkDuplicate(t *testing.T) {
	out := markDuplicate([]byte(`{"ok":true,"transfer_id":"t1"}`))
	assert.JSONEq(t, `{"ok":true,"transfer_id":"t1","duplicate_ignored":true}`, string(out))

	assert.Equal(t, []byte(`[1]`), markDuplicate([]byte(`[1]`)))
}
