package ledger

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places every stored money value carries.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to two places, which is round-half-up
// for the non-negative amounts the ledger deals in.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// percentOf returns amount × percent / 100, rounded.
func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(percent).Div(hundred))
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
