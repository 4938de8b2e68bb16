package domain

import "github.com/shopspring/decimal"

// Pricing holds the checkout charges applied on top of the cart subtotal.
type Pricing struct {
	TaxRatePercent        float64
	ShippingFee           int64
	FreeShippingThreshold int64
}

// Tax is subtotal * rate / 100 rounded half away from zero.
func (p Pricing) Tax(subtotal int64) int64 {
	if p.TaxRatePercent <= 0 || subtotal <= 0 {
		return 0
	}

	return decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromFloat(p.TaxRatePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// Shipping is the flat fee unless the subtotal reaches the free threshold.
func (p Pricing) Shipping(subtotal int64) int64 {
	if p.FreeShippingThreshold > 0 && subtotal >= p.FreeShippingThreshold {
		return 0
	}
	return p.ShippingFee
}
