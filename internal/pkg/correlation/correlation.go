// Package correlation carries a per-request correlation identifier through
// contexts, logs, response headers and emitted events.
package correlation

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MaxIDLength is the longest correlation id accepted from a client.
const MaxIDLength = 128

// Header is the canonical header used to exchange correlation ids.
const Header = "X-Correlation-ID"

// FallbackHeader is accepted from clients that only send a request id.
const FallbackHeader = "X-Request-ID"

type contextKey struct{}

type state struct {
	mu sync.RWMutex
	id string
}

// Ensure attaches correlation state to ctx if not already present.
func Ensure(ctx context.Context) context.Context {
	if ctx == nil {
		return context.WithValue(context.Background(), contextKey{}, &state{})
	}
	if _, ok := ctx.Value(contextKey{}).(*state); ok {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, &state{})
}

// Set records id on ctx. Invalid ids are ignored and ctx is returned as is.
func Set(ctx context.Context, id string) context.Context {
	normalized, ok := Normalize(id)
	if !ok {
		return ctx
	}
	ctx = Ensure(ctx)
	st, _ := ctx.Value(contextKey{}).(*state)
	st.mu.Lock()
	st.id = normalized
	st.mu.Unlock()
	return ctx
}

// ID returns the correlation id stored on ctx, or "".
func ID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if st, ok := ctx.Value(contextKey{}).(*state); ok && st != nil {
		st.mu.RLock()
		id := st.id
		st.mu.RUnlock()
		return id
	}
	return ""
}

// Has reports whether ctx carries a correlation id.
func Has(ctx context.Context) bool {
	return ID(ctx) != ""
}

// Normalize trims id and rejects empty, overlong or non-printable values.
func Normalize(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > MaxIDLength {
		return "", false
	}
	for _, r := range id {
		if r < 0x20 || r > 0x7e {
			return "", false
		}
	}
	return id, true
}

// Generate produces a new time-ordered correlation id.
func Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
