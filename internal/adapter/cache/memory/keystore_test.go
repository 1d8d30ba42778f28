package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/pkg/clock"
)

func TestKeyStore_GetDistinguishesMissingFromEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewKeyStore(nil)

	_, found, err := s.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "empty", []byte{}, time.Minute))
	v, found, err := s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, v)
}

func TestKeyStore_Expiry(t *testing.T) {
	ctx := context.Background()
	c := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewKeyStore(c)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	c.Advance(59 * time.Second)
	_, found, _ := s.Get(ctx, "k")
	assert.True(t, found)

	c.Advance(time.Second)
	_, found, _ = s.Get(ctx, "k")
	assert.False(t, found)
	assert.Equal(t, 0, s.Len())
}

func TestKeyStore_SetNX(t *testing.T) {
	ctx := context.Background()
	c := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewKeyStore(c)

	ok, err := s.SetNX(ctx, "k", []byte("first"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(ctx, "k", []byte("second"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "first", string(v))

	c.Advance(2 * time.Minute)
	ok, err = s.SetNX(ctx, "k", []byte("third"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reserved again")
}

func TestKeyStore_DeleteMissingIsNoop(t *testing.T) {
	s := NewKeyStore(nil)
	assert.NoError(t, s.Delete(context.Background(), "nope"))
}

func TestKeyStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewKeyStore(nil)
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	v, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestKeyStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewKeyStore(nil)

	_, _, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
