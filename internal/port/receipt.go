package port

import "context"

// Receipts renders and archives transfer receipts.
type Receipts interface {
	Render(ctx context.Context, accountID, transferID string) ([]byte, error)
	Archive(ctx context.Context, accountID, transferID string) (ArchiveReceiptResponse, error)
}
