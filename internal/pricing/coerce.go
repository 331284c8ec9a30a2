package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+([.,]\d*)?|[.,]\d+)([eE][+-]?\d+)?`)

// ParseAmount reads a possibly half-typed amount. "3,5" and "3.5 UF" both
// yield 3.5 and "1e3" yields 1000. Anything without a leading number, or
// out of float64 range, yields 0.
func ParseAmount(raw string) float64 {
	match := numericPrefix.FindString(strings.TrimSpace(raw))
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return 0
	}
	return finite(value)
}

// ParseCount reads a non-negative integer count; fractions are truncated.
func ParseCount(raw string) int {
	return Count(ParseAmount(raw))
}

// Count truncates an amount to a quantity. Negative, non-finite and
// out-of-range values count as 0.
func Count(v float64) int {
	if math.IsNaN(v) || v <= 0 || v > math.MaxInt32 {
		return 0
	}
	return int(v)
}

// ClampDiscount bounds a discount percentage to [0,100].
func ClampDiscount(percent float64) float64 {
	switch {
	case math.IsNaN(percent), percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

// NormalizeTaxRate rejects negative and non-finite tax rates as zero.
func NormalizeTaxRate(rate float64) float64 {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return 0
	}
	return rate
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
