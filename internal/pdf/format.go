package pdf

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var clPrinter = message.NewPrinter(language.MustParse("es-CL"))

// roundHalfAway rounds to places decimals, halves away from zero.
func roundHalfAway(v float64, places int32) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(places)
}

// FormatUF prints a UF amount with two decimals and a decimal comma: "UF 6,02".
func FormatUF(v float64) string {
	return "UF " + strings.Replace(roundHalfAway(v, 2).StringFixed(2), ".", ",", 1)
}

// FormatPercent prints a percentage with at most two decimals: 19, 12,5.
func FormatPercent(v float64) string {
	return strings.Replace(roundHalfAway(v, 2).String(), ".", ",", 1)
}

// FormatCLP prints a peso amount without decimals and with es-CL grouping:
// "$1.234.567".
func FormatCLP(v float64) string {
	n := roundHalfAway(v, 0).IntPart()
	if n < 0 {
		return "-$" + clPrinter.Sprintf("%d", -n)
	}
	return "$" + clPrinter.Sprintf("%d", n)
}
