package cartapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cartwidget/internal/cart"
	"github.com/noah-isme/toko-cartwidget/internal/cartapi"
	"github.com/noah-isme/toko-cartwidget/internal/cartclient"
	"github.com/noah-isme/toko-cartwidget/internal/common"
	"github.com/noah-isme/toko-cartwidget/internal/obs"
	"github.com/noah-isme/toko-cartwidget/internal/ratelimit"
	"github.com/noah-isme/toko-cartwidget/internal/security"
)

const cookieName = "CART_SESSION"

func newRouter(t *testing.T, mutate func(*cartapi.RouterConfig)) http.Handler {
	t.Helper()
	svc, _ := newService(t)
	cfg := cartapi.RouterConfig{
		Handler:         cartapi.NewHandler(cartapi.HandlerConfig{Service: svc, CookieName: cookieName, CookieMaxAge: time.Hour, Logger: zerolog.Nop()}),
		Logger:          zerolog.Nop(),
		SessionCookie:   cookieName,
		SecurityHeaders: security.Headers{Enable: true},
		BodyLimit:       4 << 10,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return cartapi.NewRouter(cfg)
}

func do(t *testing.T, h http.Handler, method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie issued", cookieName)
	return nil
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) cart.Result {
	t.Helper()
	var res cart.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestGetIssuesSessionCookie(t *testing.T) {
	router := newRouter(t, nil)
	rec := do(t, router, http.MethodGet, "/api/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, 3600, cookie.MaxAge)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var c cart.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.True(t, c.IsEmpty())

	again := do(t, router, http.MethodGet, "/api/cart", "", cookie)
	require.Empty(t, again.Result().Cookies())
}

func TestTamperedSessionGetsFreshCookie(t *testing.T) {
	router := newRouter(t, nil)
	rec := do(t, router, http.MethodGet, "/api/cart", "", &http.Cookie{Name: cookieName, Value: "../../etc"})
	require.NotEqual(t, "../../etc", sessionCookie(t, rec).Value)
}

func TestAddThenPreview(t *testing.T) {
	router := newRouter(t, nil)
	first := do(t, router, http.MethodGet, "/api/cart", "", nil)
	cookie := sessionCookie(t, first)

	rec := do(t, router, http.MethodPost, "/api/cart", `{"productId":1,"quantity":2,"sizeSelected":"Nhỏ","priceId":10}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult(t, rec)
	require.True(t, res.Success)
	require.Equal(t, "Sản phẩm đã được thêm vào giỏ hàng!", res.Message)
	require.Equal(t, "/cart", res.RedirectURL)
	require.Equal(t, 2, res.Snapshot().TotalItems)

	rec = do(t, router, http.MethodGet, "/api/cart/preview", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var preview cart.Preview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	require.True(t, preview.Success)
	require.Equal(t, 2, preview.TotalItems)
	require.True(t, preview.TotalAmount.Equal(decimal.NewFromInt(50000)))
	require.Len(t, preview.Items, 1)
}

func TestMutationErrorsUsePrefixes(t *testing.T) {
	router := newRouter(t, nil)
	cookie := sessionCookie(t, do(t, router, http.MethodGet, "/api/cart", "", nil))

	cases := []struct {
		name, method, target, body, message string
	}{
		{"unknown product", http.MethodPost, "/api/cart", `{"productId":404,"quantity":1,"priceId":10}`, "Lỗi: Product not found with id: 404"},
		{"bad body", http.MethodPost, "/api/cart", `{`, "Lỗi: Invalid request body"},
		{"missing quantity", http.MethodPut, "/api/cart/items/1", "", "Lỗi cập nhật: Quantity is required"},
		{"unknown item", http.MethodPut, "/api/cart/items/77?quantity=2", "", "Lỗi cập nhật: Cart item not found"},
		{"bad item id", http.MethodDelete, "/api/cart/items/abc", "", "Lỗi xóa sản phẩm: Invalid cart item id"},
		{"remove unknown", http.MethodDelete, "/api/cart/items/77", "", "Lỗi xóa sản phẩm: Cart item not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, tc.method, tc.target, tc.body, cookie)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			res := decodeResult(t, rec)
			require.False(t, res.Success)
			require.Equal(t, tc.message, res.Message)
			require.Nil(t, res.Cart)
		})
	}
}

func TestClearReturnsNoCart(t *testing.T) {
	router := newRouter(t, nil)
	cookie := sessionCookie(t, do(t, router, http.MethodGet, "/api/cart", "", nil))
	do(t, router, http.MethodPost, "/api/cart", `{"productId":1,"quantity":1,"priceId":10}`, cookie)

	rec := do(t, router, http.MethodDelete, "/api/cart", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult(t, rec)
	require.True(t, res.Success)
	require.Equal(t, "Giỏ hàng đã được xóa", res.Message)
	require.Nil(t, res.Cart)
}

func TestBodyLimit(t *testing.T) {
	router := newRouter(t, func(cfg *cartapi.RouterConfig) { cfg.BodyLimit = 16 })
	rec := do(t, router, http.MethodPost, "/api/cart", `{"productId":1,"quantity":1,"priceId":10}`, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, security.BodyLimitMessage, decodeResult(t, rec).Message)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	router := newRouter(t, func(cfg *cartapi.RouterConfig) {
		cfg.RateLimit = &ratelimit.Handler{
			Limiter: ratelimit.Limiter{Client: client, Prefix: "rl:"},
			Window:  time.Minute,
			Max:     2,
			Logger:  zerolog.Nop(),
		}
	})
	for range 2 {
		require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/cart/preview", "", nil).Code)
	}
	rec := do(t, router, http.MethodGet, "/api/cart/preview", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, ratelimit.DefaultMessage, decodeResult(t, rec).Message)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health/live", "", nil).Code)
}

func TestMetricsEndpointAndMutationCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs.MustRegisterAPIMetrics("cartapi_test", reg)
	metrics := obs.NewHTTPMetrics("cartapi_test", nil, reg)

	router := newRouter(t, func(cfg *cartapi.RouterConfig) {
		cfg.HTTPMetrics = metrics
		cfg.MetricsHandler = promhttpFor(reg)
	})
	before := testutil.ToFloat64(obs.CartMutationsTotal.WithLabelValues("add", "rejected"))
	do(t, router, http.MethodPost, "/api/cart", `{"productId":404,"quantity":1,"priceId":10}`, nil)
	require.Equal(t, before+1, testutil.ToFloat64(obs.CartMutationsTotal.WithLabelValues("add", "rejected")))

	rec := do(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "cart_mutations_total")
}

func TestClientAgainstServer(t *testing.T) {
	srv := httptest.NewServer(newRouter(t, nil))
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client, err := cartclient.New(cartclient.Config{
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Jar: jar, Timeout: 2 * time.Second},
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	summary, err := client.FetchSummary(ctx)
	require.NoError(t, err)
	require.True(t, summary.IsEmpty())

	added, err := client.AddItem(ctx, cart.AddItemRequest{ProductID: 2, SizeSelected: ptr("16cm"), PriceID: ptr(int64(20))})
	require.NoError(t, err)
	snap := added.Snapshot()
	require.Equal(t, 1, snap.TotalItems)
	id := snap.Items[0].CartItemID

	updated, err := client.SetQuantity(ctx, id, 3)
	require.NoError(t, err)
	require.True(t, updated.Snapshot().TotalAmount.Equal(decimal.NewFromInt(600000)))

	_, err = client.SetQuantity(ctx, id+100, 1)
	require.Equal(t, common.CodeRejected, common.CodeOf(err))
	require.Equal(t, "Lỗi cập nhật: Cart item not found", common.MessageOf(err, ""))

	full, err := client.FetchFullCart(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, full.TotalItems)

	cleared, err := client.ClearAll(ctx)
	require.NoError(t, err)
	require.True(t, cleared.Snapshot().IsEmpty())

	full, err = client.FetchFullCart(ctx)
	require.NoError(t, err)
	require.True(t, full.IsEmpty())
}

func promhttpFor(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
