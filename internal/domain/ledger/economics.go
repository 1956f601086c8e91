package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TaxScheme determines how output VAT is applied to a sale
type TaxScheme string

const (
	TaxSchemeStandard  TaxScheme = "standard"
	TaxSchemeZeroRated TaxScheme = "zero_rated"
	TaxSchemeMargin    TaxScheme = "margin_scheme"
)

// StandardVATRate is the UK standard rate applied under TaxSchemeStandard
var StandardVATRate = decimal.RequireFromString("0.20")

// marginVATFraction is the VAT fraction of a VAT-inclusive margin at 20% (20/120).
var marginVATFraction = decimal.NewFromInt(1).Div(decimal.NewFromInt(6))

var taxSchemeAliases = map[string]TaxScheme{
	"standard":       TaxSchemeStandard,
	"standard_rate":  TaxSchemeStandard,
	"standard_rated": TaxSchemeStandard,
	"vat":            TaxSchemeStandard,
	"uk":             TaxSchemeStandard,
	"zero":           TaxSchemeZeroRated,
	"zero_rate":      TaxSchemeZeroRated,
	"zero_rated":     TaxSchemeZeroRated,
	"export":         TaxSchemeZeroRated,
	"exports":        TaxSchemeZeroRated,
	"margin":         TaxSchemeMargin,
	"margin_scheme":  TaxSchemeMargin,
	"second_hand":    TaxSchemeMargin,
}

// ParseTaxScheme maps a branding theme or scheme tag onto a TaxScheme.
// An unrecognised tag yields TaxSchemeStandard and ok=false.
func ParseTaxScheme(tag string) (TaxScheme, bool) {
	key := strings.ToLower(strings.TrimSpace(tag))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if scheme, ok := taxSchemeAliases[key]; ok {
		return scheme, true
	}
	return TaxSchemeStandard, false
}

// EconomicsInput holds the raw money inputs of a sale
type EconomicsInput struct {
	AmountIncTax decimal.Decimal
	BuyPrice     decimal.Decimal
	CardFees     decimal.Decimal
	ShippingCost decimal.Decimal
	// ImportVAT and ImportDuty are non-reclaimable import costs absorbed by the business.
	ImportVAT  decimal.Decimal
	ImportDuty decimal.Decimal
	SchemeTag  string
}

// Economics is the VAT-aware margin breakdown of a sale
type Economics struct {
	Scheme               TaxScheme
	UnknownScheme        bool
	AmountIncTax         decimal.Decimal
	AmountExTax          decimal.Decimal
	VATAmount            decimal.Decimal
	MarginVAT            decimal.Decimal
	DirectCosts          decimal.Decimal
	GrossMargin          decimal.Decimal
	ImportCosts          decimal.Decimal
	CommissionableMargin decimal.Decimal
}

// CalculateEconomics derives ex-tax amount, direct costs, gross margin and
// commissionable margin. It is pure: every intermediate value is rounded to
// two places before it is used in the next step.
func CalculateEconomics(in EconomicsInput) Economics {
	scheme, known := ParseTaxScheme(in.SchemeTag)

	inc := RoundMoney(in.AmountIncTax)
	buy := RoundMoney(in.BuyPrice)

	e := Economics{
		Scheme:        scheme,
		UnknownScheme: !known,
		AmountIncTax:  inc,
		MarginVAT:     decimal.Zero,
	}

	switch scheme {
	case TaxSchemeZeroRated:
		e.AmountExTax = inc
		e.VATAmount = decimal.Zero
	case TaxSchemeMargin:
		e.AmountExTax = inc
		e.VATAmount = decimal.Zero
		if margin := RoundMoney(inc.Sub(buy)); margin.IsPositive() {
			e.MarginVAT = RoundMoney(margin.Mul(marginVATFraction))
		}
	default:
		e.AmountExTax = RoundMoney(inc.Div(decimal.NewFromInt(1).Add(StandardVATRate)))
		e.VATAmount = RoundMoney(inc.Sub(e.AmountExTax))
	}

	e.DirectCosts = RoundMoney(RoundMoney(in.CardFees).Add(RoundMoney(in.ShippingCost)))
	e.GrossMargin = RoundMoney(e.AmountExTax.Sub(buy).Sub(e.DirectCosts).Sub(e.MarginVAT))
	e.ImportCosts = RoundMoney(RoundMoney(in.ImportVAT).Add(RoundMoney(in.ImportDuty)))
	e.CommissionableMargin = RoundMoney(e.GrossMargin.Sub(e.ImportCosts))

	return e
}

// EconomicsCalculator wraps CalculateEconomics with logging of unknown schemes
type EconomicsCalculator struct {
	logger *zap.Logger
}

// NewEconomicsCalculator creates a new EconomicsCalculator
func NewEconomicsCalculator(logger *zap.Logger) *EconomicsCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EconomicsCalculator{logger: logger}
}

// Calculate runs CalculateEconomics and warns when the scheme tag was not recognised
func (c *EconomicsCalculator) Calculate(in EconomicsInput) Economics {
	e := CalculateEconomics(in)
	if e.UnknownScheme {
		c.logger.Warn("Unrecognised tax scheme, defaulting to standard rate",
			zap.String("scheme_tag", in.SchemeTag),
		)
	}
	return e
}
