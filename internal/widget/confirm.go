package widget

import (
	"context"
	"errors"
)

// ErrNotConfirmed is returned when the shopper declines a destructive action.
var ErrNotConfirmed = errors.New("widget: action not confirmed")

// ClearPrompt is asked before the whole cart is cleared.
const ClearPrompt = "Bạn có chắc muốn xóa tất cả sản phẩm?"

// Confirmer obtains an explicit yes/no from the shopper.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}
