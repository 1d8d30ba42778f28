package http

import (
	"fmt"
	"maps"
	"strings"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/idempotency"
)

// Operation names scope idempotency keys and label guard metrics.
const (
	OpPayment   = string(domain.KindPayment)
	OpP2P       = string(domain.KindP2P)
	OpSwap      = string(domain.KindSwap)
	OpQRPayment = string(domain.KindQRPayment)
)

// Policies maps each money-movement operation to its duplicate policy.
type Policies map[string]idempotency.Policy

// DefaultPolicies is the duplicate behaviour of each endpoint. Payments and
// P2P transfers answer retries with the first result; swaps and QR payments
// reject them so a client never mistakes a replay for a second trade.
func DefaultPolicies() Policies {
	return Policies{
		OpPayment:   idempotency.ReturnCached,
		OpP2P:       idempotency.ReturnCached,
		OpSwap:      idempotency.RaiseConflict,
		OpQRPayment: idempotency.RaiseConflict,
	}
}

// ParsePolicyOverrides applies "op=policy,op=policy" on top of base.
func ParsePolicyOverrides(base Policies, overrides string) (Policies, error) {
	out := maps.Clone(base)
	for _, pair := range strings.Split(overrides, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		op, name, ok := strings.Cut(pair, "=")
		op = strings.ToLower(strings.TrimSpace(op))
		if !ok || op == "" {
			return nil, fmt.Errorf("%w: override %q", idempotency.ErrInvalidPolicy, pair)
		}
		if _, known := base[op]; !known {
			return nil, fmt.Errorf("%w: unknown operation %q", idempotency.ErrInvalidPolicy, op)
		}
		p, err := idempotency.ParsePolicy(name)
		if err != nil {
			return nil, err
		}
		out[op] = p
	}
	return out, nil
}

// For returns the policy of op. Unknown operations get RaiseConflict.
func (p Policies) For(op string) idempotency.Policy {
	if v, ok := p[op]; ok {
		return v
	}
	return idempotency.RaiseConflict
}
