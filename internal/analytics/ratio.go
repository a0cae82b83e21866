package analytics

import "math"

// denominatorFloor is the smallest denominator any ratio is divided by.
// Ratios over empty or zero-valued groups therefore collapse toward 0 instead of NaN/Inf.
const denominatorFloor = 1.0

// SafeRatio divides num by den with den floored at denominatorFloor.
// A missing (NaN) operand yields NaN so per-row means can skip the row.
func SafeRatio(num, den float64) float64 {
	if math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	return num / math.Max(den, denominatorFloor)
}

// Round2 rounds v to two decimal places, half to even.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.RoundToEven(v*100) / 100
}

// RoundInt rounds v to the nearest integer, half to even.
func RoundInt(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.RoundToEven(v))
}
