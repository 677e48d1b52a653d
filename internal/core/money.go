package core

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ConvertAmount converts amount at rate, rounded to cents. Arithmetic is
// decimal so 19.99 * 10.5 is 209.90, not 209.89499999.
func ConvertAmount(amount, rate float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Round(2).Float64()
	return v
}

// Total accumulates prices without float drift.
type Total struct {
	sum   decimal.Decimal
	count int
}

// Add adds v to the total. Nil is skipped.
func (t *Total) Add(v *float64) {
	if v == nil {
		return
	}
	t.sum = t.sum.Add(decimal.NewFromFloat(*v))
	t.count++
}

// Count returns the number of priced values added.
func (t Total) Count() int { return t.count }

// Float64 returns the sum rounded to cents.
func (t Total) Float64() float64 {
	v, _ := t.sum.Round(2).Float64()
	return v
}

// Format renders the sum in currency, e.g. "$1,234.56".
func (t Total) Format(currency string) string {
	return FormatAmount(t.sum, currency)
}

// FormatAmount renders amount with the currency's symbol, separators and
// minor-unit precision.
func FormatAmount(amount decimal.Decimal, currency string) string {
	// money.New never returns a nil currency, unknown codes get a bare formatter
	cur := money.New(0, currency).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
