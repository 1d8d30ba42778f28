package idempotency

import (
	"fmt"
	"strings"
)

// Policy decides what a duplicate request gets once the first one finished.
type Policy int

const (
	// ReturnCached replays the stored result of the first execution.
	ReturnCached Policy = iota + 1
	// RaiseConflict rejects the duplicate with ErrDuplicateRequest.
	RaiseConflict
)

func (p Policy) String() string {
	switch p {
	case ReturnCached:
		return "return_cached"
	case RaiseConflict:
		return "raise_conflict"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Valid reports whether p is one of the declared policies.
func (p Policy) Valid() bool {
	return p == ReturnCached || p == RaiseConflict
}

// ParsePolicy parses return_cached or raise_conflict, ignoring case.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "return_cached":
		return ReturnCached, nil
	case "raise_conflict":
		return RaiseConflict, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}
