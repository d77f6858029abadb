// Package money holds the tax and payroll arithmetic. Amounts are
// int64 cents everywhere; intermediate math runs on decimals so the
// reverse-tax decomposition and hourly payouts round deterministically
// (half away from zero) instead of drifting with float64.
package money

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// WithTax returns amount grossed up by the tax rate, e.g. a 40.00
// estimate at 11.5% becomes 44.60.
func WithTax(amountCents int64, ratePercent float64) int64 {
	gross := decimal.NewFromInt(amountCents).Mul(taxFactor(ratePercent))
	return gross.Round(0).IntPart()
}

// Decompose splits a tax-inclusive gross amount back into subtotal and
// tax portions. The subtotal is rounded to cents and the tax is the
// exact remainder so the two always re-sum to the gross.
func Decompose(grossCents int64, ratePercent float64) (subtotalCents int64, taxCents int64) {
	subtotal := decimal.NewFromInt(grossCents).Div(taxFactor(ratePercent)).Round(0).IntPart()
	return subtotal, grossCents - subtotal
}

// HoursAmount converts worked milliseconds into hours and the payout
// amount at the given hourly rate.
func HoursAmount(workedMS int64, hourlyRateCents int64) (hours float64, amountCents int64) {
	h := decimal.NewFromInt(workedMS).Div(decimal.NewFromInt(3600000))
	amount := h.Mul(decimal.NewFromInt(hourlyRateCents)).Round(0).IntPart()
	hours, _ = h.Round(4).Float64()
	return hours, amount
}

func taxFactor(ratePercent float64) decimal.Decimal {
	rate := decimal.NewFromFloat(ratePercent).Div(oneHundred)
	return decimal.NewFromInt(1).Add(rate)
}
