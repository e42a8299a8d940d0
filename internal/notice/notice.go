// Package notice shows transient, self-dismissing notices to the shopper.
package notice

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cartwidget/internal/obs"
)

// Level distinguishes success and failure notices.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultDelay is how long a notice stays visible.
const DefaultDelay = 3 * time.Second

// Notice is one visible message.
type Notice struct {
	ID      string
	Level   Level
	Message string
	ShownAt time.Time
}

// Toaster keeps the set of visible notices. Show never blocks and never
// fails; each notice removes itself after Delay.
type Toaster struct {
	Delay  time.Duration
	Logger zerolog.Logger
	// OnShow, when set, is called synchronously for every notice.
	OnShow func(Notice)
	// Now overrides the clock in tests.
	Now func() time.Time

	mu     sync.Mutex
	active map[string]Notice
}

// NewToaster constructs a toaster with the given dismiss delay.
func NewToaster(delay time.Duration, logger zerolog.Logger) *Toaster {
	return &Toaster{Delay: delay, Logger: logger}
}

// Success shows a success notice.
func (t *Toaster) Success(message string) {
	t.Show(LevelSuccess, message)
}

// Error shows a failure notice.
func (t *Toaster) Error(message string) {
	t.Show(LevelError, message)
}

// Show displays a notice and schedules its dismissal.
func (t *Toaster) Show(level Level, message string) {
	n := Notice{ID: uuid.NewString(), Level: level, Message: message, ShownAt: t.now()}

	t.mu.Lock()
	if t.active == nil {
		t.active = make(map[string]Notice)
	}
	t.active[n.ID] = n
	t.mu.Unlock()

	evt := t.Logger.Info()
	if level == LevelError {
		evt = t.Logger.Warn()
	}
	evt.Str("notice_id", n.ID).Str("level", string(level)).Str("notice", message).Msg("notice_shown")
	obs.CountNotice(string(level))

	if t.OnShow != nil {
		t.OnShow(n)
	}
	time.AfterFunc(t.delay(), func() { t.dismiss(n.ID) })
}

// Active returns the visible notices, oldest first.
func (t *Toaster) Active() []Notice {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Notice, 0, len(t.active))
	for _, n := range t.active {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShownAt.Equal(out[j].ShownAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ShownAt.Before(out[j].ShownAt)
	})
	return out
}

func (t *Toaster) dismiss(id string) {
	t.mu.Lock()
	delete(t.active, id)
	t.mu.Unlock()
}

func (t *Toaster) delay() time.Duration {
	if t.Delay <= 0 {
		return DefaultDelay
	}
	return t.Delay
}

func (t *Toaster) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
