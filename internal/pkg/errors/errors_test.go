package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/pkg/correlation"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantTitle  string
	}{
		{"problem", New(http.StatusConflict, "Conflict", "Duplicate request detected"), http.StatusConflict, "Conflict"},
		{"wrapped problem", fmt.Errorf("swap: %w", New(http.StatusUnprocessableEntity, "Unprocessable Entity", "bad")), http.StatusUnprocessableEntity, "Unprocessable Entity"},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/swaps", nil)
			req = req.WithContext(correlation.Set(req.Context(), "corr-1"))
			rec := httptest.NewRecorder()

			WriteError(rec, req, tt.err)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
			var body Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantTitle, body.Title)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, "corr-1", body.CorrelationID)
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("insufficient balance")
	err := Wrap(cause, http.StatusPaymentRequired, "Payment Required", cause.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "402 Payment Required: insufficient balance", err.Error())
}
