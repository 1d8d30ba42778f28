package idempotency

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "payment:user-1:abc", ScopeKey("payment", "user-1", "abc"))
	assert.NotEqual(t, ScopeKey("payment", "u1", "k"), ScopeKey("payment", "u2", "k"))
	assert.NotEqual(t, ScopeKey("payment", "u1", "k"), ScopeKey("swap", "u1", "k"))

	// A colon inside the user id cannot be confused with the separator.
	assert.NotEqual(t, ScopeKey("payment", "a:b", "c"), ScopeKey("payment", "a", "b:c"))
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		err  error
	}{
		{name: "uuid", key: "3f1c2a8e-7b4d-4e0f-9a51-6c2d8e9b1f03"},
		{name: "max length", key: strings.Repeat("k", MaxKeyLength)},
		{name: "empty", key: "", err: ErrMissingKey},
		{name: "too long", key: strings.Repeat("k", MaxKeyLength+1), err: ErrInvalidKey},
		{name: "space", key: "a b", err: ErrInvalidKey},
		{name: "control", key: "a\nb", err: ErrInvalidKey},
		{name: "non ascii", key: "ключ", err: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
