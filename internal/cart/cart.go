// Package cart holds the cart snapshot exchanged between the storefront
// widget and the cart API. A Cart is immutable once received: every
// mutation returns a whole new snapshot.
package cart

import (
	"github.com/shopspring/decimal"
)

// DefaultStockCeiling bounds the quantity stepper when the server does not
// report stock for an item.
const DefaultStockCeiling = 999

// Cart is the server-authoritative snapshot of a shopper's cart.
type Cart struct {
	CartID      *int64          `json:"cartId,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalItems  int             `json:"totalItems"`
}

// Item is one line of a Cart. CartItemID correlates rendered rows, stepper
// inputs and API calls.
type Item struct {
	CartItemID    int64           `json:"cartItemId"`
	ProductID     int64           `json:"productId,omitempty"`
	ProductName   string          `json:"productName"`
	MainImageURL  string          `json:"mainImageUrl,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	SubTotal      decimal.Decimal `json:"subTotal"`
	SizeSelected  string          `json:"sizeSelected,omitempty"`
	PriceID       *int64          `json:"priceId,omitempty"`
	Description   string          `json:"description,omitempty"`
	StockQuantity *int            `json:"stockQuantity,omitempty"`
}

// MaxQuantity is the upper bound of the item's quantity stepper.
func (i Item) MaxQuantity() int {
	if i.StockQuantity == nil || *i.StockQuantity <= 0 {
		return DefaultStockCeiling
	}
	return *i.StockQuantity
}

// Empty returns the snapshot rendered after the cart was cleared.
func Empty() Cart {
	return Cart{Items: []Item{}, TotalAmount: decimal.Zero}
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Result is the tagged response of every mutating cart API call.
type Result struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Cart        *Cart  `json:"cart,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// Snapshot returns the cart carried by the result, or an empty cart when the
// server confirmed the mutation without one (clearing does this).
func (r Result) Snapshot() Cart {
	if r.Cart == nil {
		return Empty()
	}
	return *r.Cart
}

// AddItemRequest is the payload of an add-to-cart call.
type AddItemRequest struct {
	ProductID    int64   `json:"productId" validate:"required,gt=0"`
	Quantity     int     `json:"quantity" validate:"min=1"`
	SizeSelected *string `json:"sizeSelected"`
	PriceID      *int64  `json:"priceId"`
}

// Normalize applies the default quantity of one.
func (r AddItemRequest) Normalize() AddItemRequest {
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	return r
}

// Preview is the lightweight header payload served by /api/cart/preview.
type Preview struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	TotalItems  int             `json:"totalItems"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []Item          `json:"items,omitempty"`
}
