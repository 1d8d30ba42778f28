package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker(2, time.Second, 1)
	b.now = func() time.Time { return now }

	boom := errors.New("dial tcp: connection refused")
	fail := func() error { return boom }

	require.ErrorIs(t, b.Do(fail, nil), boom)
	require.Equal(t, Closed, b.State())
	require.ErrorIs(t, b.Do(fail, nil), boom)
	require.Equal(t, Open, b.State())

	calls := 0
	require.ErrorIs(t, b.Do(func() error { calls++; return nil }, nil), ErrOpen)
	require.Zero(t, calls, "open breaker must not call through")

	now = now.Add(2 * time.Second)
	require.NoError(t, b.Do(func() error { calls++; return nil }, nil))
	require.Equal(t, 1, calls)
	require.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker(1, time.Second, 1)
	b.now = func() time.Time { return now }

	require.Error(t, b.Do(func() error { return errors.New("x") }, nil))
	require.Equal(t, Open, b.State())

	now = now.Add(2 * time.Second)
	require.True(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())
	require.False(t, b.Allow(), "only one probe in half-open")
	b.RecordFailure()
	require.Equal(t, Open, b.State())
}

func TestBreakerIgnoredErrorsCountAsSuccess(t *testing.T) {
	notFound := errors.New("not found")
	b := NewBreaker(1, time.Minute, 1)
	err := b.Do(func() error { return notFound }, func(err error) bool { return errors.Is(err, notFound) })
	require.ErrorIs(t, err, notFound)
	require.Equal(t, Closed, b.State())
}

func TestDisabledBreaker(t *testing.T) {
	b := NewBreaker(0, time.Minute, 1)
	for i := 0; i < 5; i++ {
		_ = b.Do(func() error { return errors.New("x") }, nil)
	}
	require.Equal(t, Closed, b.State())
	require.True(t, b.Allow())
}
