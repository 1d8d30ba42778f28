package idempotency

import (
	"encoding/json"
	"fmt"
	"time"
)

// State of a stored record.
type State string

const (
	// StatePending marks a reservation: some process is executing the operation.
	StatePending State = "pending"
	// StateDone holds the result of a successful execution.
	StateDone State = "done"
)

// Record is the envelope kept in the key store. Result is opaque; it is
// returned byte-for-byte on replay.
type Record struct {
	State      State     `json:"state"`
	Result     []byte    `json:"result,omitempty"`
	StoredAt   time.Time `json:"stored_at"`
	TTLSeconds int64     `json:"ttl_seconds"`
	Operation  string    `json:"operation,omitempty"`
}

func encodeRecord(r Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode idempotency record: %w", err)
	}
	return b, nil
}

func decodeRecord(b []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("decode idempotency record: %w", err)
	}
	switch r.State {
	case StatePending, StateDone:
		return r, nil
	default:
		return Record{}, fmt.Errorf("decode idempotency record: unknown state %q", r.State)
	}
}
