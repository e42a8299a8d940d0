package widget

import (
	"strconv"
	"strings"

	"github.com/noah-isme/toko-cartwidget/internal/cart"
	"github.com/noah-isme/toko-cartwidget/internal/view"
)

// ActionAddToCart is triggered by any element carrying data-add-to-cart.
const ActionAddToCart = "add-to-cart"

// Event is a user trigger delivered to the page's delegated listeners.
type Event struct {
	Action string
	// Attrs are the attributes of the triggering element.
	Attrs map[string]string

	defaultPrevented bool
}

// PreventDefault suppresses the navigation the trigger would otherwise cause.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// EventFromAttrs maps the attributes of a clicked element to an event. It
// returns false for elements the widget does not listen to.
func EventFromAttrs(attrs map[string]string) (*Event, bool) {
	if action, ok := attrs["data-cart-action"]; ok {
		switch action {
		case view.ActionIncrease, view.ActionDecrease, view.ActionRemove, view.ActionClear:
			return &Event{Action: action, Attrs: attrs}, true
		}
		return nil, false
	}
	if _, ok := attrs["data-add-to-cart"]; ok {
		return &Event{Action: ActionAddToCart, Attrs: attrs}, true
	}
	return nil, false
}

// ItemID returns the cart item the event targets.
func (e *Event) ItemID() (int64, bool) {
	raw := strings.TrimSpace(e.Attrs["data-cart-item-id"])
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// addRequest reads an add-to-cart payload from the trigger's data attributes.
// A missing or unparseable quantity means one; an unparseable price id is
// dropped.
func (e *Event) addRequest() (cart.AddItemRequest, error) {
	productID, err := strconv.ParseInt(strings.TrimSpace(e.Attrs["data-product-id"]), 10, 64)
	if err != nil {
		return cart.AddItemRequest{}, err
	}
	req := cart.AddItemRequest{ProductID: productID, Quantity: 1}
	if q, err := strconv.Atoi(strings.TrimSpace(e.Attrs["data-quantity"])); err == nil && q != 0 {
		req.Quantity = q
	}
	if size := strings.TrimSpace(e.Attrs["data-size-selected"]); size != "" {
		req.SizeSelected = &size
	}
	if priceID, err := strconv.ParseInt(strings.TrimSpace(e.Attrs["data-price-id"]), 10, 64); err == nil && priceID != 0 {
		req.PriceID = &priceID
	}
	return req, nil
}
