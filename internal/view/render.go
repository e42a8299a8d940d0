// Package view projects a cart snapshot onto the two widget regions: the
// always-visible header summary and the item list inside the cart panel.
// Both projections are pure functions of the snapshot; regions are always
// replaced wholesale.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"

	"github.com/noah-isme/toko-cartwidget/internal/cart"
	"github.com/noah-isme/toko-cartwidget/internal/money"
)

// DefaultPlaceholderImage is shown for items without an image.
const DefaultPlaceholderImage = "/images/placeholder.jpg"

// Control actions carried by data-cart-action.
const (
	ActionIncrease = "increase"
	ActionDecrease = "decrease"
	ActionRemove   = "remove"
	ActionClear    = "clear"
)

//go:embed templates/*.html
var templateFS embed.FS

var listTemplate = template.Must(template.New("cart").ParseFS(templateFS, "templates/*.html"))

// Header is the projection of a cart onto the header summary.
type Header struct {
	Total       string
	Badge       string
	BadgeHidden bool
}

// Renderer renders cart snapshots. The zero value formats đồng and uses the
// default placeholder image.
type Renderer struct {
	Money            money.Formatter
	PlaceholderImage string
}

// NewRenderer constructs a Renderer.
func NewRenderer(formatter money.Formatter, placeholder string) *Renderer {
	return &Renderer{Money: formatter, PlaceholderImage: placeholder}
}

// Header projects the totals. The badge keeps its text when hidden so the
// region is hidden, never removed.
func (r *Renderer) Header(c cart.Cart) Header {
	if c.TotalItems > 0 {
		return Header{Total: r.Money.Format(c.TotalAmount), Badge: strconv.Itoa(c.TotalItems)}
	}
	return Header{Total: r.Money.Format(c.TotalAmount), Badge: "0", BadgeHidden: true}
}

type rowData struct {
	ID       int64
	Name     string
	Size     string
	Image    string
	Price    string
	Quantity int
	Max      int
	SubTotal string
}

type listData struct {
	Empty bool
	Rows  []rowData
	Total string
}

// List renders the item list, or the empty state when the cart has no lines.
// Rows keep the snapshot order.
func (r *Renderer) List(c cart.Cart) (template.HTML, error) {
	data := listData{Empty: c.IsEmpty(), Total: r.Money.Format(c.TotalAmount)}
	for _, item := range c.Items {
		image := item.MainImageURL
		if image == "" {
			image = r.placeholder()
		}
		data.Rows = append(data.Rows, rowData{
			ID:       item.CartItemID,
			Name:     item.ProductName,
			Size:     item.SizeSelected,
			Image:    image,
			Price:    r.Money.Format(item.Price),
			Quantity: item.Quantity,
			Max:      item.MaxQuantity(),
			SubTotal: r.Money.Format(item.SubTotal),
		})
	}

	var buf bytes.Buffer
	if err := listTemplate.ExecuteTemplate(&buf, "list", data); err != nil {
		return "", fmt.Errorf("render cart list: %w", err)
	}
	// html/template has escaped every interpolated value.
	return template.HTML(buf.String()), nil //nolint:gosec
}

func (r *Renderer) placeholder() string {
	if r.PlaceholderImage == "" {
		return DefaultPlaceholderImage
	}
	return r.PlaceholderImage
}
