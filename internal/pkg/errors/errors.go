// Package errors renders failures as RFC 7807 problem details.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/strogmv/walletd/internal/pkg/correlation"
	"github.com/strogmv/walletd/internal/pkg/logger"
)

// ContentType is the media type of every error body.
const ContentType = "application/problem+json"

// Error is an HTTP-facing failure. Fields follow RFC 7807.
type Error struct {
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Status        int            `json:"status"`
	Detail        string         `json:"detail,omitempty"`
	Code          string         `json:"code,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`

	cause error
}

// New builds a problem with the given status, title and detail.
func New(status int, title, detail string) *Error {
	return &Error{Type: "about:blank", Title: title, Status: status, Detail: detail}
}

// Wrap builds a problem that keeps err reachable through errors.Unwrap.
func Wrap(err error, status int, title, detail string) *Error {
	e := New(status, title, detail)
	e.cause = err
	return e
}

// WithCode sets a machine-readable code on the problem.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithExtra attaches an extension member.
func (e *Error) WithExtra(key string, value any) *Error {
	if e.Extra == nil {
		e.Extra = make(map[string]any)
	}
	e.Extra[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Title)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WriteError writes err as a problem document. Errors that are not *Error
// become an opaque 500 and are logged with their cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := As(err)
	if !ok {
		logger.From(r.Context()).Error("unhandled error", "error", err, "path", r.URL.Path)
		e = New(http.StatusInternalServerError, "Internal Server Error", "")
	}
	out := *e
	out.CorrelationID = correlation.ID(r.Context())
	if out.Status >= http.StatusInternalServerError && out.cause != nil {
		logger.From(r.Context()).Error("request failed", "error", out.cause, "status", out.Status)
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(out.Status)
	_ = json.NewEncoder(w).Encode(out)
}
