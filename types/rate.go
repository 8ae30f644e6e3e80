package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseRate parses a percentage such as "5", "2.5" or "0.25".
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate: parse %q: %w", s, err)
	}
	return d, nil
}

// RateInRange reports whether lo <= rate <= hi.
func RateInRange(rate decimal.Decimal, lo, hi int64) bool {
	return rate.GreaterThanOrEqual(decimal.NewFromInt(lo)) && rate.LessThanOrEqual(decimal.NewFromInt(hi))
}
