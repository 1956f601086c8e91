package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxPlausibleMarginPercent is the gross margin ratio above which a
// supplier-sourced sale is flagged for review.
var MaxPlausibleMarginPercent = decimal.NewFromInt(60)

// ValidateMargin returns warnings for implausible money figures. The sale is
// never rejected; the caller flags it and records a validation error entry.
func ValidateMargin(s *Sale) []string {
	var warnings []string

	if s.AmountIncTax.IsZero() {
		warnings = append(warnings, "sale amount is zero")
		return warnings
	}
	if s.NeedsAllocation {
		// Buy price and supplier are placeholders until allocation.
		return warnings
	}
	if s.GrossMargin.IsNegative() {
		warnings = append(warnings, fmt.Sprintf("negative gross margin %s", s.GrossMargin.StringFixed(MoneyPlaces)))
	}
	if s.SupplierID != nil && s.AmountExTax.IsPositive() {
		pct := s.GrossMargin.Mul(hundred).Div(s.AmountExTax).Round(1)
		if pct.GreaterThan(MaxPlausibleMarginPercent) {
			warnings = append(warnings, fmt.Sprintf("gross margin %s%% is implausibly high for a supplier-sourced sale", pct.String()))
		}
	}
	return warnings
}
