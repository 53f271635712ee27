// Package money parses and sums monetary amounts without binary floating point.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that are not finite, non-negative numbers.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse reads an amount as delivered by the backend ("120", "120.50", " 7.5 ").
// Empty, non-numeric and negative values are rejected.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative %q", ErrInvalidAmount, raw)
	}
	return d, nil
}

// Places is the number of decimal places a recorded amount may carry. The
// Postgres column is numeric(14,2), so anything finer would be rounded there.
const Places = 2

// ParseEntry is Parse for amounts entered by the user. Amounts finer than a
// cent are rejected rather than rounded; trailing zeros are fine.
func ParseEntry(raw string) (decimal.Decimal, error) {
	d, err := Parse(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.Equal(d.Truncate(Places)) {
		return decimal.Zero, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, raw, Places)
	}
	return d, nil
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Format renders an amount with two decimal places, the way the app displays it.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
