package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/strogmv/walletd/internal/domain"
)

const (
	qrScheme   = "wallet"
	qrAction   = "pay"
	maxQRMemo  = 140
	maxQRField = 64
)

// QRPayload is a decoded payment code of the form
// wallet:pay?to=<ref>&asset=<code>&amount=<minor>&memo=<text>.
// Amount is zero when the code leaves it to the payer.
type QRPayload struct {
	To     string
	Asset  string
	Amount int64
	Memo   string
}

// ParseQRPayload decodes a payment code. All failures wrap
// domain.ErrInvalidQRPayload.
func ParseQRPayload(raw string) (QRPayload, error) {
	var p QRPayload
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return p, fmt.Errorf("%w: %v", domain.ErrInvalidQRPayload, err)
	}
	if !strings.EqualFold(u.Scheme, qrScheme) || u.Opaque != qrAction {
		return p, fmt.Errorf("%w: want %s:%s", domain.ErrInvalidQRPayload, qrScheme, qrAction)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return p, fmt.Errorf("%w: %v", domain.ErrInvalidQRPayload, err)
	}

	p.To = strings.TrimSpace(q.Get("to"))
	if p.To == "" || len(p.To) > maxQRField {
		return p, fmt.Errorf("%w: bad recipient", domain.ErrInvalidQRPayload)
	}
	p.Asset = strings.ToUpper(strings.TrimSpace(q.Get("asset")))
	if p.Asset == "" || len(p.Asset) > 12 {
		return p, fmt.Errorf("%w: bad asset", domain.ErrInvalidQRPayload)
	}
	if s := q.Get("amount"); s != "" {
		p.Amount, err = strconv.ParseInt(s, 10, 64)
		if err != nil || p.Amount <= 0 {
			return p, fmt.Errorf("%w: bad amount", domain.ErrInvalidQRPayload)
		}
	}
	p.Memo = q.Get("memo")
	if len(p.Memo) > maxQRMemo {
		return p, fmt.Errorf("%w: memo too long", domain.ErrInvalidQRPayload)
	}
	return p, nil
}

// String encodes p back into a payment code.
func (p QRPayload) String() string {
	q := url.Values{}
	q.Set("to", p.To)
	q.Set("asset", p.Asset)
	if p.Amount > 0 {
		q.Set("amount", strconv.FormatInt(p.Amount, 10))
	}
	if p.Memo != "" {
		q.Set("memo", p.Memo)
	}
	return qrScheme + ":" + qrAction + "?" + q.Encode()
}
