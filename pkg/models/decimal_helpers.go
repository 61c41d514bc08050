package models

import "github.com/shopspring/decimal"

// NewDecimal creates decimal from float64
func NewDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// NewPrice creates a decimal rounded to cents, the precision used for
// recommendation entry/target/stop levels
func NewPrice(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value).Round(2)
}

// ToFloat64 safely converts decimal to float64
func ToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
