package http

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/strogmv/walletd/internal/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// decodeJSONRequest decodes exactly one JSON object into out, rejecting
// unknown fields and trailing data.
func decodeJSONRequest(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New(http.StatusBadRequest, "Bad Request", "request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.New(http.StatusRequestEntityTooLarge, "Payload Too Large", fmt.Sprintf("Request body too large (max %d bytes)", tooLarge.Limit))
		case stderrors.Is(err, io.EOF):
			return errors.New(http.StatusBadRequest, "Bad Request", "request body is required")
		default:
			return errors.Wrap(err, http.StatusUnprocessableEntity, "Unprocessable Entity", "malformed JSON: "+err.Error())
		}
	}
	if dec.More() {
		return errors.New(http.StatusUnprocessableEntity, "Unprocessable Entity", "request body must contain a single JSON object")
	}
	return nil
}

// markDuplicate adds duplicate_ignored to a replayed JSON object.
func markDuplicate(body []byte) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return body
	}
	fields["duplicate_ignored"] = json.RawMessage("true")
	out, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return out
}
