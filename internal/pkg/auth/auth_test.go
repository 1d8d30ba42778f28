package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_IssueVerify(t *testing.T) {
	tokens, err := NewTokens("secret", "walletd", "walletd-api")
	require.NoError(t, err)

	token, err := tokens.Issue("alice", time.Minute)
	require.NoError(t, err)

	sub, err := tokens.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestTokens_Rejects(t *testing.T) {
	tokens, err := NewTokens("secret", "walletd", "walletd-api")
	require.NoError(t, err)
	other, err := NewTokens("other-secret", "walletd", "walletd-api")
	require.NoError(t, err)
	wrongAud, err := NewTokens("secret", "walletd", "admin")
	require.NoError(t, err)

	forged, err := other.Issue("alice", time.Minute)
	require.NoError(t, err)
	_, err = tokens.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	aud, err := wrongAud.Issue("alice", time.Minute)
	require.NoError(t, err)
	_, err = tokens.Verify(aud)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := tokens.Issue("alice", time.Minute)
	require.NoError(t, err)
	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tokens.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tokens.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	_, err := NewTokens("", "", "")
	assert.Error(t, err)
}
