// Package pricing computes cart totals from unit prices.
package pricing

import "github.com/shopspring/decimal"

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice decimal.Decimal
}

// Summary aggregates computed totals. Lines holds each item's subtotal in
// input order.
type Summary struct {
	Lines      []decimal.Decimal
	TotalItems int
	Total      decimal.Decimal
}

// Compute calculates cart totals. Items with a non-positive quantity count
// as zero.
func Compute(items []Item) Summary {
	s := Summary{Lines: make([]decimal.Decimal, len(items)), Total: decimal.Zero}
	for i, it := range items {
		if it.Qty <= 0 {
			s.Lines[i] = decimal.Zero
			continue
		}
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty)))
		s.Lines[i] = line
		s.TotalItems += it.Qty
		s.Total = s.Total.Add(line)
	}
	return s
}
