// Package core holds the transaction table shared by the dashboard views and
// the helpers that turn prices, months and fractions into display text.
//
// Prices are kept as decimals while rows are loaded and summed; aggregates
// handed to charts are float64 so that missing values can travel as NaN.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Missing is rendered in place of values that cannot be computed.
const Missing = "-"

var printer = message.NewPrinter(language.English)

// Float converts a decimal price to float64.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// CurrencyCode normalizes an ISO 4217 code. Unknown codes are returned
// upper-cased as they are, GnuCash books may carry custom commodities.
func CurrencyCode(code string) string {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	return unit.String()
}

// FormatMoney renders an amount with two decimals, thousands grouping and
// the currency code, e.g. "1,234.50 PLN". NaN and infinities render as Missing.
func FormatMoney(v float64, code string) string {
	if IsMissing(v) {
		return Missing
	}
	code = CurrencyCode(code)
	if code == "" {
		return printer.Sprintf("%.2f", v)
	}
	return printer.Sprintf("%.2f %s", v, code)
}

// FormatNumber renders a plain number with the given precision.
func FormatNumber(v float64, precision int) string {
	if IsMissing(v) {
		return Missing
	}
	return printer.Sprint(number.Decimal(v, number.Scale(precision)))
}

// FormatPercent renders a fraction as a percentage with two decimals.
func FormatPercent(fraction float64) string {
	if IsMissing(fraction) {
		return Missing
	}
	return printer.Sprintf("%.2f%%", fraction*100)
}

// IsMissing reports whether v is NaN or infinite.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// Fraction divides part by whole. A zero whole yields NaN, never zero.
func Fraction(part, whole float64) float64 {
	if whole == 0 {
		return math.NaN()
	}
	return part / whole
}
