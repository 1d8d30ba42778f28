package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/pkg/clock"
	"github.com/strogmv/walletd/internal/pkg/logger"
	"github.com/strogmv/walletd/internal/pkg/report"
	"github.com/strogmv/walletd/internal/port"
)

const (
	receiptContentType = "application/pdf"
	defaultLinkTTL     = 15 * time.Minute
)

// ReceiptImpl renders PDF receipts for transfers and archives them in
// object storage.
type ReceiptImpl struct {
	Ledger    port.Ledger
	Storage   port.FileStorage
	Generator *report.Generator

	linkTTL time.Duration
	clock   clock.Clock
}

var _ port.Receipts = (*ReceiptImpl)(nil)

// NewReceiptImpl builds the receipt service. storage may be nil, in which
// case Archive reports domain.ErrArchiveDisabled.
func NewReceiptImpl(ledger port.Ledger, storage port.FileStorage, gen *report.Generator, linkTTL time.Duration) *ReceiptImpl {
	if linkTTL <= 0 {
		linkTTL = defaultLinkTTL
	}
	return &ReceiptImpl{
		Ledger:    ledger,
		Storage:   storage,
		Generator: gen,
		linkTTL:   linkTTL,
		clock:     clock.Real{},
	}
}

func (s *ReceiptImpl) WithClock(c clock.Clock) *ReceiptImpl {
	s.clock = c
	return s
}

func (s *ReceiptImpl) Render(ctx context.Context, accountID, transferID string) ([]byte, error) {
	t, err := s.Ledger.GetTransfer(ctx, accountID, transferID)
	if err != nil {
		return nil, err
	}
	pdf, err := s.Generator.TransferReceipt(t)
	if err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", t.ID, err)
	}
	return pdf, nil
}

func (s *ReceiptImpl) Archive(ctx context.Context, accountID, transferID string) (port.ArchiveReceiptResponse, error) {
	var resp port.ArchiveReceiptResponse
	if s.Storage == nil {
		return resp, domain.ErrArchiveDisabled
	}
	pdf, err := s.Render(ctx, accountID, transferID)
	if err != nil {
		return resp, err
	}

	key := ReceiptKey(accountID, transferID)
	if _, err := s.Storage.Upload(ctx, key, bytes.NewReader(pdf), receiptContentType); err != nil {
		return resp, fmt.Errorf("upload receipt: %w", err)
	}
	url, err := s.Storage.PresignGet(ctx, key, s.linkTTL)
	if err != nil {
		return resp, fmt.Errorf("presign receipt: %w", err)
	}

	logger.From(ctx).Info("receipt archived", "transfer_id", transferID, "key", key)
	return port.ArchiveReceiptResponse{
		Key:       key,
		URL:       url,
		ExpiresAt: s.clock.Now().Add(s.linkTTL),
	}, nil
}

// ReceiptKey is the object key of an archived receipt.
func ReceiptKey(accountID, transferID string) string {
	return "receipts/" + accountID + "/" + transferID + ".pdf"
}
