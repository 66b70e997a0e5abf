// Package money converts between integer cents used internally and the
// decimal amounts exposed on the API surface.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FromCents converts integer cents into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// ToCents converts a decimal amount into integer cents. It rejects
// amounts with sub-cent precision instead of rounding them.
func ToCents(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", amount.String())
	}
	return shifted.IntPart(), nil
}

// Format renders cents as a fixed two-decimal string for responses.
func Format(cents int64) string {
	return FromCents(cents).StringFixed(2)
}

// SellerCut returns the seller's share of a sale in cents at the given
// percentage. Fractional cents round down in the platform's favour.
func SellerCut(priceCents int64, percent int) int64 {
	return priceCents * int64(percent) / 100
}
