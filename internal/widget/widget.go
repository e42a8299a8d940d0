// Package widget is the cart widget controller. It binds the page's
// delegated listeners once, turns shopper triggers into cart API calls, and
// projects every confirmed snapshot onto the page.
package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-cartwidget/internal/cart"
	"github.com/noah-isme/toko-cartwidget/internal/cartclient"
	"github.com/noah-isme/toko-cartwidget/internal/common"
	"github.com/noah-isme/toko-cartwidget/internal/obs"
	"github.com/noah-isme/toko-cartwidget/internal/view"
)

// Bound messages shown when a stepper would leave [1, max].
const (
	MaxQuantityMessage = "Đã đạt số lượng tối đa"
	MinQuantityMessage = "Số lượng tối thiểu là 1"
)

var successMessages = map[cartclient.Op]string{
	cartclient.OpAdd:         "Sản phẩm đã được thêm vào giỏ hàng!",
	cartclient.OpSetQuantity: "Giỏ hàng đã được cập nhật",
	cartclient.OpRemove:      "Sản phẩm đã được xóa khỏi giỏ hàng",
	cartclient.OpClear:       "Giỏ hàng đã được xóa",
}

var (
	// ErrQuantityBound is returned when a stepper trigger is rejected locally.
	ErrQuantityBound = errors.New("widget: quantity out of bounds")
	// ErrInvalidTrigger is returned when a trigger carries unusable attributes.
	ErrInvalidTrigger = errors.New("widget: invalid trigger")
)

// API is the cart API the widget drives. *cartclient.Client implements it.
type API interface {
	FetchFullCart(ctx context.Context) (cart.Cart, error)
	FetchSummary(ctx context.Context) (cart.Cart, error)
	AddItem(ctx context.Context, req cart.AddItemRequest) (cart.Result, error)
	SetQuantity(ctx context.Context, cartItemID int64, quantity int) (cart.Result, error)
	RemoveItem(ctx context.Context, cartItemID int64) (cart.Result, error)
	ClearAll(ctx context.Context) (cart.Result, error)
}

// Notifier surfaces outcomes to the shopper. *notice.Toaster implements it.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Options configures a Widget.
type Options struct {
	API       API
	Renderer  *view.Renderer
	Notifier  Notifier
	Confirmer Confirmer
	Page      *Page
	Logger    zerolog.Logger
	// LastIntentWins drops responses that were overtaken by a later trigger.
	// When false the last response to arrive is rendered.
	LastIntentWins bool
}

// Widget is the interaction controller and lifecycle of the cart widget.
type Widget struct {
	api            API
	renderer       *view.Renderer
	notifier       Notifier
	confirmer      Confirmer
	page           *Page
	logger         zerolog.Logger
	validate       *validator.Validate
	lastIntentWins bool

	initOnce sync.Once
	initErr  error

	seq atomic.Uint64
	// ui serialises apply-render-notify; network calls run outside it.
	ui            sync.Mutex
	headerApplied uint64
	listApplied   uint64
}

// New validates opts and constructs a Widget. Listeners are bound by Init.
func New(opts Options) (*Widget, error) {
	if opts.API == nil {
		return nil, errors.New("widget: api is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("widget: notifier is required")
	}
	if opts.Confirmer == nil {
		return nil, errors.New("widget: confirmer is required")
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = &view.Renderer{}
	}
	page := opts.Page
	if page == nil {
		page = NewPage()
	}
	return &Widget{
		api:            opts.API,
		renderer:       renderer,
		notifier:       opts.Notifier,
		confirmer:      opts.Confirmer,
		page:           page,
		logger:         opts.Logger.With().Str("component", "widget").Logger(),
		validate:       validator.New(),
		lastIntentWins: opts.LastIntentWins,
	}, nil
}

// Page returns the page the widget draws on.
func (w *Widget) Page() *Page { return w.page }

// Init binds the delegated listeners and loads the header summary. It runs
// once; later calls return the first result. A failed summary is logged only.
func (w *Widget) Init(ctx context.Context) error {
	w.initOnce.Do(func() {
		bindings := []struct {
			action   string
			listener Listener
		}{
			{ActionAddToCart, w.onAddToCart},
			{view.ActionIncrease, w.onIncrease},
			{view.ActionDecrease, w.onDecrease},
			{view.ActionRemove, w.onRemove},
			{view.ActionClear, w.onClear},
		}
		for _, b := range bindings {
			if err := w.page.Bind(b.action, b.listener); err != nil {
				w.initErr = err
				return
			}
		}
		w.loadSummary(ctx)
	})
	return w.initErr
}

// Dispatch delivers a shopper trigger to its delegated listener.
func (w *Widget) Dispatch(ctx context.Context, ev *Event) error {
	return w.page.Trigger(ctx, ev)
}

// OpenPanel shows the cart panel. The closed-to-open transition loads and
// renders the full cart; opening an open panel does nothing.
func (w *Widget) OpenPanel(ctx context.Context) error {
	if !w.page.setPanelOpen(true) {
		return nil
	}
	_, err := w.FetchCart(ctx)
	return err
}

// ClosePanel hides the cart panel.
func (w *Widget) ClosePanel() {
	w.page.setPanelOpen(false)
}

// FetchCart loads the full cart and renders both regions. Failures are
// surfaced with a notice.
func (w *Widget) FetchCart(ctx context.Context) (cart.Cart, error) {
	const action = "fetch"
	ticket := w.ticket()
	snap, err := w.api.FetchFullCart(ctx)
	if err != nil {
		return cart.Cart{}, w.reject(action, cartclient.OpFetch, err)
	}

	w.ui.Lock()
	defer w.ui.Unlock()
	w.finish(action, w.applyLocked(ticket, snap, true))
	return snap, nil
}

// AddToCart adds a product and opens the panel. A closed panel loads the
// list on opening; an open one is rendered from the add response.
func (w *Widget) AddToCart(ctx context.Context, req cart.AddItemRequest) (cart.Cart, error) {
	const action = "add"
	req = req.Normalize()
	if err := w.validate.Struct(req); err != nil {
		w.logger.Warn().Err(err).Int64("product_id", req.ProductID).Msg("cart_add_invalid")
		obs.CountAction(action, "blocked")
		w.notifier.Error(cartclient.FallbackMessage(cartclient.OpAdd))
		return cart.Cart{}, fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
	}

	ticket := w.ticket()
	res, err := w.api.AddItem(ctx, req)
	if err != nil {
		return cart.Cart{}, w.reject(action, cartclient.OpAdd, err)
	}
	snap := res.Snapshot()

	w.ui.Lock()
	w.finish(action, w.applyLocked(ticket, snap, w.page.PanelOpen()))
	w.notifySuccess(cartclient.OpAdd, res.Message)
	w.ui.Unlock()

	if err := w.OpenPanel(ctx); err != nil {
		w.logger.Debug().Err(err).Msg("cart_panel_load_failed")
	}
	return snap, nil
}

// UpdateQuantity sets an absolute quantity for one line. It does not apply
// the stepper bounds; those belong to the increase and decrease triggers.
func (w *Widget) UpdateQuantity(ctx context.Context, cartItemID int64, quantity int) (cart.Cart, error) {
	const action = "update"
	ticket := w.ticket()
	res, err := w.api.SetQuantity(ctx, cartItemID, quantity)
	if err != nil {
		return cart.Cart{}, w.reject(action, cartclient.OpSetQuantity, err)
	}
	return w.applyMutation(action, cartclient.OpSetQuantity, ticket, res), nil
}

// RemoveItem deletes one line.
func (w *Widget) RemoveItem(ctx context.Context, cartItemID int64) (cart.Cart, error) {
	const action = "remove"
	ticket := w.ticket()
	res, err := w.api.RemoveItem(ctx, cartItemID)
	if err != nil {
		return cart.Cart{}, w.reject(action, cartclient.OpRemove, err)
	}
	return w.applyMutation(action, cartclient.OpRemove, ticket, res), nil
}

// ClearCart empties the cart after the shopper confirms. A declined prompt
// returns ErrNotConfirmed without any network call.
func (w *Widget) ClearCart(ctx context.Context) error {
	const action = "clear"
	ok, err := w.confirmer.Confirm(ctx, ClearPrompt)
	if err != nil {
		obs.CountAction(action, "cancelled")
		return fmt.Errorf("confirm clear: %w", err)
	}
	if !ok {
		obs.CountAction(action, "cancelled")
		return ErrNotConfirmed
	}

	ticket := w.ticket()
	res, err := w.api.ClearAll(ctx)
	if err != nil {
		return w.reject(action, cartclient.OpClear, err)
	}
	w.applyMutation(action, cartclient.OpClear, ticket, res)
	return nil
}

// FormatCurrency formats an amount the way the widget displays totals.
func (w *Widget) FormatCurrency(amount decimal.Decimal) string {
	return w.renderer.Money.Format(amount)
}

func (w *Widget) loadSummary(ctx context.Context) {
	ticket := w.ticket()
	snap, err := w.api.FetchSummary(ctx)
	if err != nil {
		obs.CountAction("summary", "rejected")
		return
	}
	w.ui.Lock()
	defer w.ui.Unlock()
	w.finish("summary", w.applyLocked(ticket, snap, false))
}

func (w *Widget) applyMutation(action string, op cartclient.Op, ticket uint64, res cart.Result) cart.Cart {
	snap := res.Snapshot()
	w.ui.Lock()
	defer w.ui.Unlock()
	w.finish(action, w.applyLocked(ticket, snap, true))
	w.notifySuccess(op, res.Message)
	return snap
}

// applyLocked renders snap into the header and, when list is set, the item
// list. Regions already showing a later trigger's response are left alone
// when last-intent-wins is on. It reports whether anything was rendered.
func (w *Widget) applyLocked(ticket uint64, snap cart.Cart, list bool) bool {
	applied := false
	if !w.lastIntentWins || ticket > w.headerApplied {
		w.page.setHeader(w.renderer.Header(snap))
		w.headerApplied = max(w.headerApplied, ticket)
		applied = true
	}
	if !list {
		return applied
	}
	if !w.lastIntentWins || ticket > w.listApplied {
		markup, err := w.renderer.List(snap)
		if err != nil {
			w.logger.Error().Err(err).Msg("cart_render_failed")
			return applied
		}
		w.page.setList(markup)
		w.listApplied = max(w.listApplied, ticket)
		applied = true
	}
	return applied
}

func (w *Widget) finish(action string, applied bool) {
	result := "applied"
	if !applied {
		result = "stale"
		w.logger.Debug().Str("action", action).Msg("cart_response_stale")
	}
	obs.CountAction(action, result)
}

func (w *Widget) notifySuccess(op cartclient.Op, message string) {
	if strings.TrimSpace(message) == "" {
		message = successMessages[op]
	}
	w.notifier.Success(message)
}

// reject surfaces a failed round trip. The rendered state is untouched.
func (w *Widget) reject(action string, op cartclient.Op, err error) error {
	message := common.MessageOf(err, cartclient.FallbackMessage(op))
	w.logger.Warn().Err(err).Str("action", action).Str("code", common.CodeOf(err)).Msg("cart_action_rejected")
	obs.CountAction(action, "rejected")

	w.ui.Lock()
	w.notifier.Error(message)
	w.ui.Unlock()
	return err
}

func (w *Widget) ticket() uint64 {
	return w.seq.Add(1)
}

func (w *Widget) onAddToCart(ctx context.Context, ev *Event) error {
	ev.PreventDefault()
	req, err := ev.addRequest()
	if err != nil {
		w.logger.Warn().Err(err).Str("product_id", ev.Attrs["data-product-id"]).Msg("cart_add_invalid")
		obs.CountAction("add", "blocked")
		w.notifier.Error(cartclient.FallbackMessage(cartclient.OpAdd))
		return fmt.Errorf("%w: product id: %v", ErrInvalidTrigger, err)
	}
	_, err = w.AddToCart(ctx, req)
	return err
}

func (w *Widget) onIncrease(ctx context.Context, ev *Event) error {
	return w.step(ctx, ev, +1)
}

func (w *Widget) onDecrease(ctx context.Context, ev *Event) error {
	return w.step(ctx, ev, -1)
}

// step reads the current quantity and its bounds from the rendered row, so
// the check always reflects the last rendered snapshot.
func (w *Widget) step(ctx context.Context, ev *Event, delta int) error {
	id, ok := ev.ItemID()
	if !ok {
		return fmt.Errorf("%w: missing cart item id", ErrInvalidTrigger)
	}
	row, err := view.FindRow(w.page.List(), id)
	if err != nil {
		w.logger.Warn().Err(err).Int64("cart_item_id", id).Msg("cart_row_missing")
		return err
	}

	next := row.Quantity + delta
	switch {
	case delta > 0 && next > row.Max:
		obs.CountAction("update", "blocked")
		w.notifier.Error(MaxQuantityMessage)
		return ErrQuantityBound
	case delta < 0 && next < max(row.Min, 1):
		obs.CountAction("update", "blocked")
		w.notifier.Error(MinQuantityMessage)
		return ErrQuantityBound
	}
	_, err = w.UpdateQuantity(ctx, id, next)
	return err
}

func (w *Widget) onRemove(ctx context.Context, ev *Event) error {
	id, ok := ev.ItemID()
	if !ok {
		return fmt.Errorf("%w: missing cart item id", ErrInvalidTrigger)
	}
	_, err := w.RemoveItem(ctx, id)
	return err
}

func (w *Widget) onClear(ctx context.Context, _ *Event) error {
	return w.ClearCart(ctx)
}
