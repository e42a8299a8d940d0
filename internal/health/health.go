// Package health serves liveness and readiness probes for the cart API.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-cartwidget/internal/common"
)

var draining atomic.Bool

// SetReady flips readiness; the server clears it while shutting down so load
// balancers stop routing new carts to it.
func SetReady(ready bool) { draining.Store(!ready) }

// Check probes one dependency.
type Check struct {
	Name    string
	Timeout time.Duration
	Ping    func(ctx context.Context) error
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisCheck probes the cart store.
func RedisCheck(client *redis.Client) Check {
	return Check{Name: "redis", Timeout: 300 * time.Millisecond, Ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

// DBCheck probes the catalog database.
func DBCheck(db Pinger) Check {
	return Check{Name: "db", Timeout: 500 * time.Millisecond, Ping: db.Ping}
}

// Handler exposes the probe endpoints.
type Handler struct {
	Checks []Check
}

// Live reports that the process is up.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every check and answers 503 when any fails or the server is
// draining.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]string, len(h.Checks)+1)
	healthy := !draining.Load()
	if !healthy {
		status["server"] = "draining"
	}
	for _, c := range h.Checks {
		status[c.Name] = "ok"
		if err := runCheck(r.Context(), c); err != nil {
			status[c.Name] = err.Error()
			healthy = false
		}
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func runCheck(ctx context.Context, c Check) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Ping(ctx)
}
