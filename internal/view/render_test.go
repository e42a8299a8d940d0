package view_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cartwidget/internal/cart"
	"github.com/noah-isme/toko-cartwidget/internal/money"
	"github.com/noah-isme/toko-cartwidget/internal/view"
)

func intPtr(v int) *int { return &v }

func sampleCart() cart.Cart {
	return cart.Cart{
		TotalItems:  4,
		TotalAmount: decimal.NewFromInt(250000),
		Items: []cart.Item{
			{
				CartItemID:    42,
				ProductName:   "Áo thun <basic>",
				SizeSelected:  "L",
				MainImageURL:  "https://cdn.example.com/a.jpg",
				Quantity:      3,
				Price:         decimal.NewFromInt(50000),
				SubTotal:      decimal.NewFromInt(150000),
				StockQuantity: intPtr(5),
			},
			{
				CartItemID:  7,
				ProductName: "Quần jean",
				Quantity:    1,
				Price:       decimal.NewFromInt(100000),
				SubTotal:    decimal.NewFromInt(100000),
			},
		},
	}
}

func TestHeaderShowsTotalsAndBadge(t *testing.T) {
	r := view.NewRenderer(money.VND, "")
	h := r.Header(sampleCart())
	require.Equal(t, view.Header{Total: "250.000₫", Badge: "4"}, h)
}

func TestHeaderHidesBadgeWhenEmpty(t *testing.T) {
	r := view.NewRenderer(money.VND, "")
	h := r.Header(cart.Empty())
	require.Equal(t, "0₫", h.Total)
	require.True(t, h.BadgeHidden)
	require.Equal(t, "0", h.Badge)
}

func TestListRendersRowsInOrder(t *testing.T) {
	r := view.NewRenderer(money.VND, "/img/none.png")
	markup, err := r.List(sampleCart())
	require.NoError(t, err)

	rows, err := view.Rows(markup)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, view.Row{ItemID: 42, Name: "Áo thun <basic>", Quantity: 3, Min: 1, Max: 5, SubTotal: "150.000₫"}, rows[0])
	require.Equal(t, view.Row{ItemID: 7, Name: "Quần jean", Quantity: 1, Min: 1, Max: cart.DefaultStockCeiling, SubTotal: "100.000₫"}, rows[1])

	s := string(markup)
	require.Contains(t, s, "Size: L")
	require.Contains(t, s, "50.000₫ x 3")
	require.Contains(t, s, `src="/img/none.png"`)
	require.Contains(t, s, "Áo thun &lt;basic&gt;")
	require.Contains(t, s, "Tổng cộng:")
	require.Contains(t, s, `href="/checkout"`)
	require.Contains(t, s, `href="/cart"`)
	require.False(t, view.IsEmptyState(markup))
}

func TestListEmptyState(t *testing.T) {
	r := view.NewRenderer(money.VND, "")
	markup, err := r.List(cart.Cart{Items: []cart.Item{}})
	require.NoError(t, err)

	require.True(t, view.IsEmptyState(markup))
	require.Contains(t, string(markup), "Giỏ hàng của bạn đang trống")
	require.Contains(t, string(markup), "Tiếp tục mua sắm")
	require.NotContains(t, string(markup), "data-cart-checkout")

	controls, err := view.Controls(markup)
	require.NoError(t, err)
	require.Empty(t, controls)
}

func TestRenderIsIdempotent(t *testing.T) {
	r := view.NewRenderer(money.VND, "")
	first, err := r.List(sampleCart())
	require.NoError(t, err)
	second, err := r.List(sampleCart())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestControlsOnePerAction(t *testing.T) {
	r := view.NewRenderer(money.VND, "")
	markup, err := r.List(sampleCart())
	require.NoError(t, err)

	controls, err := view.Controls(markup)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, c := range controls {
		counts[c.Action+":"+strings.TrimSpace(c.Attrs["data-cart-item-id"])]++
	}
	require.Equal(t, map[string]int{
		"decrease:42": 1, "increase:42": 1, "remove:42": 1,
		"decrease:7": 1, "increase:7": 1, "remove:7": 1,
		"clear:": 1,
	}, counts)
}

func TestFindRow(t *testing.T) {
	r := view.NewRenderer(money.VND, "")
	markup, err := r.List(sampleCart())
	require.NoError(t, err)

	row, err := view.FindRow(markup, 42)
	require.NoError(t, err)
	require.Equal(t, 3, row.Quantity)
	require.Equal(t, 5, row.Max)

	_, err = view.FindRow(markup, 99)
	require.ErrorIs(t, err, view.ErrRowNotFound)
}

func TestScenarioSetQuantityProjection(t *testing.T) {
	snap := cart.Cart{
		TotalItems:  3,
		TotalAmount: decimal.NewFromInt(150000),
		Items: []cart.Item{{
			CartItemID: 42, ProductName: "Áo", Quantity: 3,
			Price: decimal.NewFromInt(50000), SubTotal: decimal.NewFromInt(150000), StockQuantity: intPtr(5),
		}},
	}
	r := view.NewRenderer(money.VND, "")
	require.Equal(t, view.Header{Total: "150.000₫", Badge: "3"}, r.Header(snap))

	markup, err := r.List(snap)
	require.NoError(t, err)
	rows, err := view.Rows(markup)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 3, rows[0].Quantity)
	require.Equal(t, "150.000₫", rows[0].SubTotal)
}
