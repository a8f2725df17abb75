// File: internal/money/money.go

// Package money converts between the locale-formatted currency strings the
// target pages display ("R$ 1.234,56") and numeric values, and renders the
// signed delta between two captured values for the report.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

const symbol = "R$"

// NoChange is the delta text used when two values are equal.
const NoChange = "Sem alteração"

// Parse converts a monetary string to a float. It tolerates the currency
// symbol, surrounding whitespace, thousand separators and a comma decimal
// mark. Unparseable input yields 0.
func Parse(s string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, symbol, ""))
	// "1.234,56" -> "1234.56"
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0
	}
	return v
}

// Format renders a float as the page's currency format, e.g. "R$ 10,50".
func Format(v float64) string {
	return symbol + " " + strings.ReplaceAll(fmt.Sprintf("%.2f", v), ".", ",")
}

// Delta computes the signed, formatted difference between two monetary
// strings, with an up or down arrow matching the direction of the change.
func Delta(oldValue, newValue string) string {
	diff := Parse(newValue) - Parse(oldValue)
	switch {
	case diff > 0:
		return "↑ " + Format(diff)
	case diff < 0:
		return "↓ " + Format(-diff)
	default:
		return NoChange
	}
}
