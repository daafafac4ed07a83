package domain

import "math"

// Round2 rounds a monetary amount to two decimal places.
// Prices and balances are stored as float64 with explicit rounding at every
// arithmetic step, so all money math in the module funnels through here.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// DiscountByPercent applies an integer percentage discount with per-step rounding.
func DiscountByPercent(amount float64, percent int) float64 {
	return Round2(amount - Round2(amount*float64(percent)/100))
}
