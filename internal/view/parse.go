package view

import (
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ErrRowNotFound is returned when no rendered row carries the requested id.
var ErrRowNotFound = errors.New("view: cart row not found")

// Row is what the rendered list shows for one item.
type Row struct {
	ItemID   int64
	Name     string
	Quantity int
	Min      int
	Max      int
	SubTotal string
}

// Control is one interactive element of the rendered list.
type Control struct {
	Action string
	ItemID int64
	Attrs  map[string]string
}

// Rows reads the item rows back from rendered list markup, in order.
func Rows(markup template.HTML) ([]Row, error) {
	root, err := parse(markup)
	if err != nil {
		return nil, err
	}
	var rows []Row
	var parseErr error
	walk(root, func(n *html.Node) bool {
		if parseErr != nil {
			return false
		}
		if n.Data != "li" {
			return true
		}
		id, ok := attr(n, "data-cart-item-id")
		if !ok {
			return true
		}
		row, err := readRow(n, id)
		if err != nil {
			parseErr = err
			return false
		}
		rows = append(rows, row)
		return false
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return rows, nil
}

// FindRow returns the rendered row for a cart item. Quantity bounds come from
// the stepper input as rendered.
func FindRow(markup template.HTML, cartItemID int64) (Row, error) {
	rows, err := Rows(markup)
	if err != nil {
		return Row{}, err
	}
	for _, row := range rows {
		if row.ItemID == cartItemID {
			return row, nil
		}
	}
	return Row{}, fmt.Errorf("%w: %d", ErrRowNotFound, cartItemID)
}

// Controls lists every element carrying data-cart-action, in document order.
func Controls(markup template.HTML) ([]Control, error) {
	root, err := parse(markup)
	if err != nil {
		return nil, err
	}
	var controls []Control
	walk(root, func(n *html.Node) bool {
		action, ok := attr(n, "data-cart-action")
		if !ok {
			return true
		}
		attrs := make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			attrs[a.Key] = a.Val
		}
		ctrl := Control{Action: action, Attrs: attrs}
		if raw, ok := attrs["data-cart-item-id"]; ok {
			ctrl.ItemID, _ = strconv.ParseInt(raw, 10, 64)
		}
		controls = append(controls, ctrl)
		return true
	})
	return controls, nil
}

// IsEmptyState reports whether the markup is the empty-cart placeholder.
func IsEmptyState(markup template.HTML) bool {
	root, err := parse(markup)
	if err != nil {
		return false
	}
	found := false
	walk(root, func(n *html.Node) bool {
		if _, ok := attr(n, "data-cart-empty"); ok {
			found = true
		}
		return !found
	})
	return found
}

func readRow(li *html.Node, rawID string) (Row, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("view: bad row id %q: %w", rawID, err)
	}
	row := Row{ItemID: id}
	walk(li, func(n *html.Node) bool {
		if _, ok := attr(n, "data-cart-item-name"); ok {
			row.Name = text(n)
		}
		if _, ok := attr(n, "data-cart-item-subtotal"); ok {
			row.SubTotal = text(n)
		}
		if _, ok := attr(n, "data-cart-item-quantity"); ok {
			row.Quantity = intAttr(n, "value", 0)
			row.Min = intAttr(n, "min", 1)
			row.Max = intAttr(n, "max", 0)
		}
		return true
	})
	return row, nil
}

func parse(markup template.HTML) (*html.Node, error) {
	root, err := html.Parse(strings.NewReader(string(markup)))
	if err != nil {
		return nil, fmt.Errorf("view: parse markup: %w", err)
	}
	return root, nil
}

// walk visits n and its descendants depth first; visit returning false skips
// the node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func intAttr(n *html.Node, key string, fallback int) int {
	raw, ok := attr(n, key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(b.String())
}
