package domain

import "errors"

// Business-rule failures returned by the ledger. They are never cached by
// the idempotency guard, so a corrected retry with the same key succeeds.
var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientLiquidity  = errors.New("insufficient treasury liquidity")
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrAccountNotFound        = errors.New("account not found")
	ErrTransferNotFound       = errors.New("transfer not found")
	ErrSelfTransferNotAllowed = errors.New("self transfer not allowed")
	ErrUnsupportedAsset       = errors.New("unsupported asset")
	ErrInvalidAmount          = errors.New("amount must be a positive integer of minor units")
	ErrSameAssetSwap          = errors.New("swap requires two different assets")
	ErrInvalidQRPayload       = errors.New("invalid qr payload")
	ErrArchiveDisabled        = errors.New("receipt archive is not configured")
)
