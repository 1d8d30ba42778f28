// Package pricefeed quotes swap rates from a static table.
package pricefeed

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/port"
)

var decimalCtx = apd.BaseContext.WithPrecision(34)

type pair struct{ from, to string }

// Static serves configured rates, their inverses and one-hop cross rates.
type Static struct {
	rates map[pair]*apd.Decimal
}

var _ port.PriceFeed = (*Static)(nil)

// ParseRates parses "FROM:TO=rate" entries separated by commas, for example
// "XLM:USDC=0.1123,USDC:EURC=0.92".
func ParseRates(spec string) (*Static, error) {
	s := &Static{rates: make(map[pair]*apd.Decimal)}
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		assets, value, ok := strings.Cut(item, "=")
		from, to, ok2 := strings.Cut(assets, ":")
		if !ok || !ok2 {
			return nil, fmt.Errorf("swap rate %q: want FROM:TO=rate", item)
		}
		rate, _, err := apd.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("swap rate %q: %w", item, err)
		}
		if err := s.Set(from, to, rate); err != nil {
			return nil, fmt.Errorf("swap rate %q: %w", item, err)
		}
	}
	return s, nil
}

// Set stores rate for from→to and its inverse.
func (s *Static) Set(from, to string, rate *apd.Decimal) error {
	from, to = strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" || from == to {
		return fmt.Errorf("invalid pair %s:%s", from, to)
	}
	if rate.Sign() <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	inv := new(apd.Decimal)
	if _, err := decimalCtx.Quo(inv, apd.New(1, 0), rate); err != nil {
		return err
	}
	s.rates[pair{from, to}] = new(apd.Decimal).Set(rate)
	s.rates[pair{to, from}] = inv
	return nil
}

func (s *Static) Rate(ctx context.Context, from, to string) (*apd.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r, ok := s.rates[pair{from, to}]; ok {
		return new(apd.Decimal).Set(r), nil
	}
	for p, first := range s.rates {
		if p.from != from {
			continue
		}
		if second, ok := s.rates[pair{p.to, to}]; ok {
			out := new(apd.Decimal)
			if _, err := decimalCtx.Mul(out, first, second); err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: no rate for %s/%s", domain.ErrUnsupportedAsset, from, to)
}
