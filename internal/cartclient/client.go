// Package cartclient talks to the storefront cart API and normalises every
// response into either a confirmed cart snapshot or a *common.AppError.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-cartwidget/internal/cart"
	"github.com/noah-isme/toko-cartwidget/internal/common"
	"github.com/noah-isme/toko-cartwidget/internal/obs"
	"github.com/noah-isme/toko-cartwidget/internal/resilience"
)

// Op names one cart API operation.
type Op string

const (
	OpFetch       Op = "fetch"
	OpSummary     Op = "summary"
	OpAdd         Op = "add"
	OpSetQuantity Op = "set_quantity"
	OpRemove      Op = "remove"
	OpClear       Op = "clear"
)

// Fallback messages shown when the server gives no usable message.
var fallbackMessages = map[Op]string{
	OpFetch:       "Không thể tải giỏ hàng",
	OpSummary:     "Không thể tải giỏ hàng",
	OpAdd:         "Không thể thêm vào giỏ hàng",
	OpSetQuantity: "Không thể cập nhật",
	OpRemove:      "Không thể xóa sản phẩm",
	OpClear:       "Không thể xóa giỏ hàng",
}

// FallbackMessage returns the generic failure message for op.
func FallbackMessage(op Op) string {
	return fallbackMessages[op]
}

const maxResponseBytes = 1 << 20

// Config configures a Client.
type Config struct {
	BaseURL  string
	Endpoint string
	// HTTPClient defaults to a client with an otelhttp transport.
	HTTPClient *http.Client
	// Timeout is zero by default: a hung request stays pending.
	Timeout time.Duration
	Breaker *resilience.Breaker
	Logger  zerolog.Logger
}

// Client performs the cart API round trips. It never retries.
type Client struct {
	baseURL  string
	endpoint string
	http     resilience.HTTPClient
	logger   zerolog.Logger
}

// New validates cfg and constructs a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("cartclient: base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("cartclient: invalid base url %q", cfg.BaseURL)
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "/api/cart"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		baseURL:  base,
		endpoint: strings.TrimRight(endpoint, "/"),
		http: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     cfg.Breaker,
			MaxAttempts: 1,
			Timeout:     cfg.Timeout,
		},
		logger: cfg.Logger.With().Str("component", "cartclient").Logger(),
	}, nil
}

// FetchFullCart retrieves the complete cart, items included.
func (c *Client) FetchFullCart(ctx context.Context) (cart.Cart, error) {
	return c.fetch(ctx, OpFetch)
}

// FetchSummary reads the same resource for the header totals only. It is a
// background read: failures are logged here and left for the caller to
// swallow.
func (c *Client) FetchSummary(ctx context.Context) (cart.Cart, error) {
	snap, err := c.fetch(ctx, OpSummary)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cart_summary_failed")
		return cart.Cart{}, err
	}
	return snap, nil
}

// AddItem submits a new line; quantity defaults to one.
func (c *Client) AddItem(ctx context.Context, req cart.AddItemRequest) (cart.Result, error) {
	payload, err := json.Marshal(req.Normalize())
	if err != nil {
		return cart.Result{}, common.NewAppError(common.CodeTransport, FallbackMessage(OpAdd), 0, fmt.Errorf("encode add request: %w", err))
	}
	return c.mutate(ctx, OpAdd, http.MethodPost, c.url(""), payload)
}

// SetQuantity submits an absolute quantity for one line.
func (c *Client) SetQuantity(ctx context.Context, cartItemID int64, quantity int) (cart.Result, error) {
	target := c.url("/items/"+strconv.FormatInt(cartItemID, 10)) + "?" + url.Values{"quantity": {strconv.Itoa(quantity)}}.Encode()
	return c.mutate(ctx, OpSetQuantity, http.MethodPut, target, nil)
}

// RemoveItem deletes one line.
func (c *Client) RemoveItem(ctx context.Context, cartItemID int64) (cart.Result, error) {
	return c.mutate(ctx, OpRemove, http.MethodDelete, c.url("/items/"+strconv.FormatInt(cartItemID, 10)), nil)
}

// ClearAll deletes the whole cart.
func (c *Client) ClearAll(ctx context.Context) (cart.Result, error) {
	return c.mutate(ctx, OpClear, http.MethodDelete, c.url(""), nil)
}

func (c *Client) url(suffix string) string {
	return c.baseURL + c.endpoint + suffix
}

func (c *Client) fetch(ctx context.Context, op Op) (cart.Cart, error) {
	start := time.Now()
	resp, err := c.send(ctx, op, http.MethodGet, c.url(""), nil)
	if err != nil {
		c.observe(op, "transport", start)
		return cart.Cart{}, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(op, "transport", start)
		return cart.Cart{}, transportError(op, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	var snap cart.Cart
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&snap); err != nil {
		c.observe(op, "transport", start)
		return cart.Cart{}, transportError(op, resp.StatusCode, fmt.Errorf("decode cart: %w", err))
	}
	if snap.Items == nil {
		snap.Items = []cart.Item{}
	}
	c.observe(op, "ok", start)
	return snap, nil
}

func (c *Client) mutate(ctx context.Context, op Op, method, target string, body []byte) (cart.Result, error) {
	start := time.Now()
	resp, err := c.send(ctx, op, method, target, body)
	if err != nil {
		c.observe(op, "transport", start)
		return cart.Result{}, err
	}
	defer drainAndClose(resp.Body)

	statusOK := resp.StatusCode >= 200 && resp.StatusCode < 300
	var result cart.Result
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result)
	switch {
	case decodeErr != nil:
		c.observe(op, "transport", start)
		return cart.Result{}, transportError(op, resp.StatusCode, fmt.Errorf("decode result: %w", decodeErr))
	case !statusOK || !result.Success:
		c.observe(op, "rejected", start)
		message := strings.TrimSpace(result.Message)
		if message == "" {
			message = FallbackMessage(op)
		}
		c.logger.Warn().Str("op", string(op)).Int("status", resp.StatusCode).Str("server_message", result.Message).Msg("cart_mutation_rejected")
		return cart.Result{}, common.NewAppError(common.CodeRejected, message, resp.StatusCode, fmt.Errorf("%s rejected: %s", op, message))
	}
	c.observe(op, "ok", start)
	return result, nil
}

func (c *Client) send(ctx context.Context, op Op, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, transportError(op, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", string(op)).Str("method", method).Msg("cart_request_failed")
		return nil, transportError(op, 0, err)
	}
	return resp, nil
}

func (c *Client) observe(op Op, result string, start time.Time) {
	elapsed := time.Since(start)
	obs.ObserveClientRequest(string(op), result, obs.DurationMillis(elapsed))
	c.logger.Debug().Str("op", string(op)).Str("result", result).Int64("duration_ms", elapsed.Milliseconds()).Msg("cart_request")
}

func transportError(op Op, status int, err error) *common.AppError {
	return common.NewAppError(common.CodeTransport, FallbackMessage(op), status, fmt.Errorf("%s: %w", op, err))
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxResponseBytes))
	_ = body.Close()
}
