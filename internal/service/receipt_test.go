package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/strogmv/walletd/internal/adapter/storage/memory"
	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/pkg/report"
	"github.com/strogmv/walletd/internal/port"
)

func TestReceipts_RenderAndArchive(t *testing.T) {
	f := newLedgerFixture(t, nil)
	ctx := context.Background()

	res, err := f.ledger.AttemptTransfer(ctx, port.TransferCommand{PayerID: "alice", PayeeRef: "bob", Asset: "XLM", Amount: 10})
	require.NoError(t, err)

	files := storage.New("http://files.local")
	receipts := NewReceiptImpl(f.ledger, files, report.NewGenerator("https://explorer.local/tx/"), time.Minute)

	pdf, err := receipts.Render(ctx, "alice", res.TransferID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	out, err := receipts.Archive(ctx, "bob", res.TransferID)
	require.NoError(t, err)
	assert.Equal(t, ReceiptKey("bob", res.TransferID), out.Key)
	assert.True(t, strings.HasPrefix(out.URL, "http://files.local/"))
	assert.Equal(t, "application/pdf", files.ContentType(out.Key))

	_, err = receipts.Render(ctx, "coffee-shop", res.TransferID)
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}

func TestReceipts_ArchiveDisabled(t *testing.T) {
	f := newLedgerFixture(t, nil)
	receipts := NewReceiptImpl(f.ledger, nil, report.NewGenerator(""), 0)

	_, err := receipts.Archive(context.Background(), "alice", "x")
	assert.ErrorIs(t, err, domain.ErrArchiveDisabled)
}
