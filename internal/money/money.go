// Package money formats cart amounts for display.
package money

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Formatter renders an amount in a fixed currency without subunits.
type Formatter struct {
	// Pattern is a go-humanize FormatInteger pattern selecting the
	// thousands separator.
	Pattern string
	Symbol  string
}

// VND formats Vietnamese đồng the way the storefront shows prices: dot
// grouping and a trailing ₫ (150.000₫).
var VND = Formatter{Pattern: "#.###,", Symbol: "₫"}

// Format rounds amount to a whole unit and renders it.
func (f Formatter) Format(amount decimal.Decimal) string {
	whole := amount.Round(0)
	if whole.IsZero() {
		return "0" + f.symbol()
	}
	return humanize.FormatInteger(f.pattern(), int(whole.IntPart())) + f.symbol()
}

// FormatPtr treats a missing amount as zero.
func (f Formatter) FormatPtr(amount *decimal.Decimal) string {
	if amount == nil {
		return f.Format(decimal.Zero)
	}
	return f.Format(*amount)
}

func (f Formatter) pattern() string {
	if strings.TrimSpace(f.Pattern) == "" {
		return VND.Pattern
	}
	return f.Pattern
}

func (f Formatter) symbol() string {
	if f.Symbol == "" {
		return VND.Symbol
	}
	return f.Symbol
}
