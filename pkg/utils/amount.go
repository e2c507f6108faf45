package utils

import "math"

// Round1 rounds a KAS amount to one decimal place, the precision used for
// marketplace sale prices.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Near reports whether a is within tolerance of b. Incoming payment amounts
// carry float conversion noise from base units, so reserved-amount matching
// is tolerance based.
func Near(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
