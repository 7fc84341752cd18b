package allocator

import "math"

// DefaultUnit is the default quantization granularity in currency units.
const DefaultUnit = 1000

// Quantize rescales a non-negative amount to the given unit, rounding half up.
// It never overflows, whatever the magnitude of amount.
func Quantize(amount, unit int) int {
	q, r := amount/unit, amount%unit
	if r >= unit-r {
		q++
	}
	return q
}

// addCapped adds two non-negative values, saturating at math.MaxInt.
func addCapped(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// quantizePool returns the quantized amount of every item along with their
// quantized total and largest quantized amount.
func quantizePool(pool []Item, unit int) (amounts []int, total, largest int) {
	amounts = make([]int, len(pool))
	for i, item := range pool {
		q := Quantize(item.Amount, unit)
		amounts[i] = q
		total = addCapped(total, q)
		if q > largest {
			largest = q
		}
	}
	return amounts, total, largest
}
