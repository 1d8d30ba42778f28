// Package auth verifies the bearer tokens that identify wallet users.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gbrlsnchs/jwt/v3"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload. Subject is the wallet account id.
type Claims struct {
	jwt.Payload
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	alg      *jwt.HMACSHA
	issuer   string
	audience string
	now      func() time.Time
}

func NewTokens(secret, issuer, audience string) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required for HS256")
	}
	return &Tokens{
		alg:      jwt.NewHS256([]byte(secret)),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}, nil
}

// Issue signs an access token for userID valid for ttl.
func (t *Tokens) Issue(userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	now := t.now()
	claims := Claims{Payload: jwt.Payload{
		Issuer:         t.issuer,
		Subject:        userID,
		IssuedAt:       jwt.NumericDate(now),
		NotBefore:      jwt.NumericDate(now),
		ExpirationTime: jwt.NumericDate(now.Add(ttl)),
		JWTID:          uuid.NewString(),
	}}
	if t.audience != "" {
		claims.Audience = jwt.Audience{t.audience}
	}
	token, err := jwt.Sign(&claims, t.alg)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(token), nil
}

// Verify checks signature, issuer, audience and validity window and returns
// the subject.
func (t *Tokens) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", ErrInvalidToken
	}

	now := t.now()
	validators := []jwt.Validator{
		jwt.ExpirationTimeValidator(now),
		jwt.NotBeforeValidator(now),
	}
	if t.issuer != "" {
		validators = append(validators, jwt.IssuerValidator(t.issuer))
	}
	if t.audience != "" {
		validators = append(validators, jwt.AudienceValidator(jwt.Audience{t.audience}))
	}

	var claims Claims
	if _, err := jwt.Verify([]byte(token), t.alg, &claims, jwt.ValidatePayload(&claims.Payload, validators...)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
