package widget

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"

	"github.com/noah-isme/toko-cartwidget/internal/view"
)

var (
	// ErrAlreadyBound is returned when a second listener is bound to an action.
	ErrAlreadyBound = errors.New("widget: listener already bound")
	// ErrNoListener is returned when an event has no bound listener.
	ErrNoListener = errors.New("widget: no listener for action")
)

// Listener handles one delegated action.
type Listener func(ctx context.Context, ev *Event) error

// Page is the headless page the widget draws on: the header summary, the
// item list inside the cart panel, the panel's open state, and a table of
// delegated listeners keyed by action. Regions are replaced wholesale and
// rendering never touches the listener table.
type Page struct {
	mu        sync.RWMutex
	header    view.Header
	list      template.HTML
	panelOpen bool
	listeners map[string]Listener
}

// NewPage returns an empty page with the badge hidden.
func NewPage() *Page {
	return &Page{
		header:    view.Header{Total: "0₫", Badge: "0", BadgeHidden: true},
		listeners: make(map[string]Listener),
	}
}

// Header returns the current header region.
func (p *Page) Header() view.Header {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.header
}

// List returns the current item list region.
func (p *Page) List() template.HTML {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.list
}

// PanelOpen reports whether the cart panel is shown.
func (p *Page) PanelOpen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.panelOpen
}

// Bind registers the single delegated listener for action.
func (p *Page) Bind(action string, l Listener) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listeners == nil {
		p.listeners = make(map[string]Listener)
	}
	if _, ok := p.listeners[action]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, action)
	}
	p.listeners[action] = l
	return nil
}

// ListenerCount returns the number of bound listeners.
func (p *Page) ListenerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.listeners)
}

// Trigger delivers ev to its listener.
func (p *Page) Trigger(ctx context.Context, ev *Event) error {
	p.mu.RLock()
	l, ok := p.listeners[ev.Action]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoListener, ev.Action)
	}
	return l(ctx, ev)
}

func (p *Page) setHeader(h view.Header) {
	p.mu.Lock()
	p.header = h
	p.mu.Unlock()
}

func (p *Page) setList(list template.HTML) {
	p.mu.Lock()
	p.list = list
	p.mu.Unlock()
}

// setPanelOpen reports whether the call changed the panel state.
func (p *Page) setPanelOpen(open bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := p.panelOpen != open
	p.panelOpen = open
	return changed
}
