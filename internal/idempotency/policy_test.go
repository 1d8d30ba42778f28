package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "return_cached", want: ReturnCached},
		{in: "RAISE_CONFLICT", want: RaiseConflict},
		{in: "  raise_conflict ", want: RaiseConflict},
		{in: "", wantErr: true},
		{in: "ignore", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPolicy)
				assert.Equal(t, KindInvalidFormat, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, must(ParsePolicy(got.String())))
		})
	}
}

func must(p Policy, err error) Policy {
	if err != nil {
		panic(err)
	}
	return p
}

func TestPolicyValid(t *testing.T) {
	assert.True(t, ReturnCached.Valid())
	assert.True(t, RaiseConflict.Valid())
	assert.False(t, Policy(0).Valid())
	assert.Equal(t, "policy(7)", Policy(7).String())
}
