package store

import "math"

// Business pricing policy. Shipping is free only strictly above the threshold:
// an items total of exactly 200 still pays the flat fee.
const (
	FreeShippingThreshold = 200.0
	FlatShippingFee       = 15.0
	TaxRate               = 0.08
)

func ComputeTotals(itemsTotal float64) (shipping, tax, total float64) {
	shipping = FlatShippingFee
	if itemsTotal > FreeShippingThreshold {
		shipping = 0
	}
	tax = roundCents(itemsTotal * TaxRate)
	total = roundCents(itemsTotal + shipping + tax)
	return shipping, tax, total
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
