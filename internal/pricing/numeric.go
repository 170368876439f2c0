package pricing

import (
	"math"
	"strconv"
	"strings"
)

// maxKilograms bounds parsed weights so gram conversion cannot overflow.
const maxKilograms = 1e9

// ParseNumber reads a number typed into a form field. Anything that does not
// parse to a finite value is zero.
func ParseNumber(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// ParseGrams converts a kilogram figure to whole grams. The result may be
// negative; callers clamp.
func ParseGrams(raw string) int64 {
	return KilogramsToGrams(ParseNumber(raw))
}

func KilogramsToGrams(kg float64) int64 {
	if math.IsNaN(kg) || math.IsInf(kg, 0) || math.Abs(kg) > maxKilograms {
		return 0
	}
	return int64(math.Round(kg * 1000))
}

func GramsToKilograms(grams int64) float64 {
	return float64(grams) / 1000
}

// PerKilogram prices a weight in grams at a per-kilogram rate, rounding half
// away from zero to the cent.
func PerKilogram(grams int64, pricePerKgCents int64) int64 {
	return mulDivRound(grams, pricePerKgCents, 1000)
}

// ApplyBps scales an amount by a basis-point multiplier.
func ApplyBps(amountCents int64, bps int64) int64 {
	return mulDivRound(amountCents, bps, bpsScale)
}

func mulDivRound(a, b, d int64) int64 {
	if d == 0 {
		return 0
	}
	n := a * b
	q := n / d
	r := n % d
	if r < 0 {
		r = -r
	}
	if 2*r >= d {
		if n < 0 {
			q--
		} else {
			q++
		}
	}
	return q
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
