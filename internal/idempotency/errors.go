package idempotency

import (
	"errors"
)

// Kind classifies guard failures for callers that map them to responses.
type Kind string

const (
	KindMissingKey       Kind = "MissingIdempotencyKey"
	KindDuplicateRequest Kind = "DuplicateRequest"
	KindStoreUnavailable Kind = "KeyStoreUnavailable"
	KindInvalidFormat    Kind = "InvalidEnumOrKeyFormat"
)

// Error is a guard failure. The exported sentinels are *Error values, so both
// errors.Is(err, ErrDuplicateRequest) and errors.As(err, &*Error) work.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

var (
	ErrMissingKey          = &Error{Kind: KindMissingKey, msg: "idempotency key is required"}
	ErrDuplicateRequest    = &Error{Kind: KindDuplicateRequest, msg: "duplicate request detected"}
	ErrRequestInProgress   = &Error{Kind: KindDuplicateRequest, msg: "request with this idempotency key is still in progress"}
	ErrKeyStoreUnavailable = &Error{Kind: KindStoreUnavailable, msg: "idempotency key store unavailable"}
	ErrInvalidPolicy       = &Error{Kind: KindInvalidFormat, msg: "invalid duplicate policy"}
	ErrInvalidKey          = &Error{Kind: KindInvalidFormat, msg: "invalid idempotency key"}
)

// KindOf returns the Kind of the first *Error in err's chain, or "" when err
// did not come from the guard.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
