package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cartwidget/internal/common"
)

// DefaultMessage is returned to throttled shoppers.
const DefaultMessage = "Bạn thao tác quá nhanh, vui lòng thử lại sau"

// Handler enforces a per-client limit in front of the cart API. Limiter
// failures are logged and the request is let through.
type Handler struct {
	Limiter Limiter
	Window  time.Duration
	Max     int
	// Key defaults to ByClientIP.
	Key     func(*http.Request) string
	Message string
	Logger  zerolog.Logger
}

// ByClientIP keys requests by the caller's address.
func ByClientIP(r *http.Request) string {
	return "ip:" + common.ClientIP(r)
}

// Middleware implements the chi middleware signature.
func (h Handler) Middleware(next http.Handler) http.Handler {
	key := h.Key
	if key == nil {
		key = ByClientIP
	}
	message := h.Message
	if message == "" {
		message = DefaultMessage
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := h.Limiter.Allow(r.Context(), key(r), h.Window, h.Max)
		if err != nil {
			h.Logger.Warn().Err(err).Msg("rate_limit_unavailable")
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Max, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := max(int(time.Until(decision.ResetAt).Seconds()), 0)
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			h.Logger.Info().Str("client_ip", common.ClientIP(r)).Str("path", r.URL.Path).Msg("rate_limited")
			common.JSON(w, http.StatusTooManyRequests, map[string]any{"success": false, "message": message})
			return
		}
		next.ServeHTTP(w, r)
	})
}
