// Package amount parses and formats the currency figures printed on
// settlement statements. Statements are single-currency (CNY).
package amount

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the statement currency.
const Currency = money.CNY

// Parse reads a statement figure such as "1,003,855.00" or "-45.5".
func Parse(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// ParseOrZero is Parse with blank cells read as zero.
func ParseOrZero(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return Parse(s)
}

// Float converts a parsed figure to the float64 used by the domain types.
func Float(d decimal.Decimal) float64 { return d.InexactFloat64() }

// Within reports whether a and b differ by at most eps.
func Within(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Display formats v as a CNY amount, e.g. "¥1,003,855.00".
func Display(v float64) string {
	return money.NewFromFloat(v, Currency).Display()
}
