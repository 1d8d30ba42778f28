package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/strogmv/walletd/internal/pkg/errors"
	"github.com/strogmv/walletd/internal/port"
)

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.Ledger.Balances(r.Context(), CurrentUserID(r))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	items := make([]port.BalanceResponse, 0, len(balances))
	for _, b := range balances {
		items = append(items, port.BalanceResponse{Asset: b.Asset, Amount: b.Amount, UpdatedAt: b.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": items})
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, r, errors.New(http.StatusBadRequest, "Bad Request", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	transfers, err := s.Ledger.ListTransfers(r.Context(), CurrentUserID(r), limit)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	items := make([]port.TransferResponse, 0, len(transfers))
	for i := range transfers {
		items = append(items, port.NewTransferResponse(&transfers[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": items})
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := s.Ledger.GetTransfer(r.Context(), CurrentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, port.NewTransferResponse(t))
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pdf, err := s.Receipts.Render(r.Context(), CurrentUserID(r), id)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="receipt-`+id+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleArchiveReceipt(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Receipts.Archive(r.Context(), CurrentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
