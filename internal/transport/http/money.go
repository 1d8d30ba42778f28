package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/idempotency"
	"github.com/strogmv/walletd/internal/port"
)

// Idempotency headers
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
	HeaderDegraded       = "Idempotency-Degraded"
)

type validatable interface {
	Validate() error
}

// guarded runs one money-movement request through the idempotency guard.
// The key header is checked before the body is read, so a request without
// one never touches the key store or the ledger.
func (s *Server) guarded(w http.ResponseWriter, r *http.Request, op string, req validatable, call func(ctx context.Context, userID string) (any, error)) {
	rawKey := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if rawKey == "" {
		writeProblem(w, r, idempotency.ErrMissingKey)
		return
	}
	if err := idempotency.ValidateKey(rawKey); err != nil {
		writeProblem(w, r, err)
		return
	}

	if err := decodeJSONRequest(r, req); err != nil {
		writeProblem(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeProblem(w, r, err)
		return
	}

	userID := CurrentUserID(r)
	out, err := s.Guard.Execute(r.Context(), idempotency.ScopeKey(op, userID, rawKey), func(ctx context.Context) ([]byte, error) {
		v, err := call(ctx, userID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}, idempotency.Options{Policy: s.Policies.For(op), Operation: op})
	if err != nil {
		writeProblem(w, r, err)
		return
	}

	body := out.Result
	if out.Replayed {
		body = markDuplicate(body)
		w.Header().Set(HeaderReplayed, "true")
	}
	if out.Degraded {
		w.Header().Set(HeaderDegraded, "true")
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req port.PaymentRequest
	s.guarded(w, r, OpPayment, &req, func(ctx context.Context, userID string) (any, error) {
		return s.Ledger.AttemptTransfer(ctx, port.TransferCommand{
			Kind:     domain.KindPayment,
			PayerID:  userID,
			PayeeRef: req.MerchantID,
			Asset:    req.Asset,
			Amount:   req.Amount,
			Memo:     req.Memo,
		})
	})
}

func (s *Server) handleP2PTransfer(w http.ResponseWriter, r *http.Request) {
	var req port.P2PTransferRequest
	s.guarded(w, r, OpP2P, &req, func(ctx context.Context, userID string) (any, error) {
		return s.Ledger.AttemptTransfer(ctx, port.TransferCommand{
			Kind:     domain.KindP2P,
			PayerID:  userID,
			PayeeRef: req.Recipient,
			Asset:    req.Asset,
			Amount:   req.Amount,
			Memo:     req.Memo,
		})
	})
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req port.SwapRequest
	s.guarded(w, r, OpSwap, &req, func(ctx context.Context, userID string) (any, error) {
		return s.Ledger.Swap(ctx, port.SwapCommand{
			PayerID:   userID,
			FromAsset: req.FromAsset,
			ToAsset:   req.ToAsset,
			Amount:    req.Amount,
		})
	})
}

func (s *Server) handleQRPayment(w http.ResponseWriter, r *http.Request) {
	var req port.QRPaymentRequest
	s.guarded(w, r, OpQRPayment, &req, func(ctx context.Context, userID string) (any, error) {
		return s.Ledger.PayQR(ctx, port.QRPaymentCommand{
			PayerID: userID,
			Payload: req.QRPayload,
			Amount:  req.Amount,
		})
	})
}
