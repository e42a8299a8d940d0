package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cartwidget/internal/money"
)

func TestFormatVND(t *testing.T) {
	cases := []struct {
		name   string
		amount decimal.Decimal
		want   string
	}{
		{name: "zero", amount: decimal.Zero, want: "0₫"},
		{name: "hundreds", amount: decimal.NewFromInt(500), want: "500₫"},
		{name: "subtotal", amount: decimal.NewFromInt(150000), want: "150.000₫"},
		{name: "million", amount: decimal.NewFromInt(1000000), want: "1.000.000₫"},
		{name: "rounds half up", amount: decimal.RequireFromString("45999.5"), want: "46.000₫"},
		{name: "drops subunits", amount: decimal.RequireFromString("12000.40"), want: "12.000₫"},
		{name: "rounds to zero", amount: decimal.RequireFromString("0.4"), want: "0₫"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, money.VND.Format(tc.amount))
		})
	}
}

func TestFormatPtrNil(t *testing.T) {
	require.Equal(t, "0₫", money.VND.FormatPtr(nil))
	amount := decimal.NewFromInt(75000)
	require.Equal(t, "75.000₫", money.VND.FormatPtr(&amount))
}

func TestZeroValueFormatterUsesVND(t *testing.T) {
	require.Equal(t, "2.500₫", money.Formatter{}.Format(decimal.NewFromInt(2500)))
}
