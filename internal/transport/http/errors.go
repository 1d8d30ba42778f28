package http

import (
	stderrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/idempotency"
	"github.com/strogmv/walletd/internal/pkg/errors"
)

// Problem codes
const (
	CodeMissingKey       = "MissingIdempotencyKeyHeader"
	CodeInvalidKey       = "InvalidEnumOrKeyFormat"
	CodeDuplicateRequest = "DuplicateRequest"
	CodeValidation       = "ValidationFailed"
)

type statusRule struct {
	target error
	status int
	title  string
}

var domainStatuses = []statusRule{
	{domain.ErrInsufficientBalance, http.StatusPaymentRequired, "Payment Required"},
	{domain.ErrInsufficientLiquidity, http.StatusPaymentRequired, "Payment Required"},
	{domain.ErrRecipientNotFound, http.StatusNotFound, "Not Found"},
	{domain.ErrTransferNotFound, http.StatusNotFound, "Not Found"},
	{domain.ErrAccountNotFound, http.StatusNotFound, "Not Found"},
	{domain.ErrSelfTransferNotAllowed, http.StatusUnprocessableEntity, "Unprocessable Entity"},
	{domain.ErrUnsupportedAsset, http.StatusUnprocessableEntity, "Unprocessable Entity"},
	{domain.ErrInvalidAmount, http.StatusUnprocessableEntity, "Unprocessable Entity"},
	{domain.ErrSameAssetSwap, http.StatusUnprocessableEntity, "Unprocessable Entity"},
	{domain.ErrInvalidQRPayload, http.StatusUnprocessableEntity, "Unprocessable Entity"},
	{domain.ErrArchiveDisabled, http.StatusServiceUnavailable, "Service Unavailable"},
}

// problemFor maps service and guard failures to problem documents. Errors
// with no mapping are returned unchanged and rendered as opaque 500s.
func problemFor(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}

	switch {
	case idempotency.IsConflict(err):
		p := errors.Wrap(err, http.StatusConflict, "Conflict", "Duplicate request detected").WithCode(CodeDuplicateRequest)
		if stderrors.Is(err, idempotency.ErrRequestInProgress) {
			p.WithExtra("in_progress", true)
		}
		return p
	case stderrors.Is(err, idempotency.ErrMissingKey):
		return errors.Wrap(err, http.StatusUnprocessableEntity, "Unprocessable Entity", "Idempotency-Key header is required").WithCode(CodeMissingKey)
	case idempotency.KindOf(err) == idempotency.KindInvalidFormat:
		return errors.Wrap(err, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error()).WithCode(CodeInvalidKey)
	case stderrors.Is(err, idempotency.ErrKeyStoreUnavailable):
		return errors.Wrap(err, http.StatusServiceUnavailable, "Service Unavailable", "idempotency key store unavailable")
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		p := errors.Wrap(err, http.StatusUnprocessableEntity, "Unprocessable Entity", "request validation failed").WithCode(CodeValidation)
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return p.WithExtra("fields", fields)
	}

	for _, rule := range domainStatuses {
		if stderrors.Is(err, rule.target) {
			return errors.Wrap(err, rule.status, rule.title, err.Error())
		}
	}
	return err
}

func writeProblem(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, r, problemFor(err))
}
