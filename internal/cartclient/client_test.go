package cartclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cartwidget/internal/cart"
	"github.com/noah-isme/toko-cartwidget/internal/cartclient"
	"github.com/noah-isme/toko-cartwidget/internal/common"
	"github.com/noah-isme/toko-cartwidget/internal/resilience"
)

func newClient(t *testing.T, handler http.HandlerFunc) *cartclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := cartclient.New(cartclient.Config{BaseURL: srv.URL + "/", Logger: zerolog.Nop()})
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := cartclient.New(cartclient.Config{})
	require.Error(t, err)

	_, err = cartclient.New(cartclient.Config{BaseURL: "not a url"})
	require.Error(t, err)
}

func TestFetchFullCart(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/cart", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"totalItems":2,"totalAmount":100000,"items":[{"cartItemId":7,"productName":"Áo","quantity":2,"price":50000,"subTotal":100000}]}`)
	})

	snap, err := client.FetchFullCart(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.TotalItems)
	require.True(t, snap.TotalAmount.Equal(decimal.NewFromInt(100000)))
	require.Len(t, snap.Items, 1)
	require.EqualValues(t, 7, snap.Items[0].CartItemID)
}

func TestFetchNullItemsBecomesEmptySlice(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"totalItems":0,"totalAmount":null,"items":null}`)
	})

	snap, err := client.FetchFullCart(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Items)
	require.True(t, snap.IsEmpty())
}

func TestFetchNon2xxIsTransportError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchFullCart(context.Background())
	require.Error(t, err)
	require.Equal(t, common.CodeTransport, common.CodeOf(err))
	require.Equal(t, "Không thể tải giỏ hàng", common.MessageOf(err, ""))
}

func TestFetchSummaryReturnsError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	})

	_, err := client.FetchSummary(context.Background())
	require.Equal(t, common.CodeTransport, common.CodeOf(err))
}

func TestAddItemSendsPayloadWithDefaultQuantity(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/cart", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 12, body["productId"])
		require.EqualValues(t, 1, body["quantity"])
		require.Equal(t, "M", body["sizeSelected"])
		_, _ = io.WriteString(w, `{"success":true,"message":"Sản phẩm đã được thêm vào giỏ hàng!","redirectUrl":"/cart","cart":{"totalItems":1,"totalAmount":50000,"items":[{"cartItemId":1,"productName":"Áo","quantity":1,"price":50000,"subTotal":50000}]}}`)
	})

	size := "M"
	res, err := client.AddItem(context.Background(), cart.AddItemRequest{ProductID: 12, SizeSelected: &size})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "/cart", res.RedirectURL)
	require.Equal(t, 1, res.Snapshot().TotalItems)
}

func TestSetQuantityUsesQueryParameter(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/cart/items/42", r.URL.Path)
		require.Equal(t, "4", r.URL.Query().Get("quantity"))
		_, _ = io.WriteString(w, `{"success":true,"message":"Giỏ hàng đã được cập nhật","cart":{"totalItems":4,"totalAmount":200000,"items":[]}}`)
	})

	res, err := client.SetQuantity(context.Background(), 42, 4)
	require.NoError(t, err)
	require.Equal(t, 4, res.Snapshot().TotalItems)
}

func TestRemoveAndClearUseDelete(t *testing.T) {
	var paths []string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		paths = append(paths, r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"message":"ok"}`)
	})

	_, err := client.RemoveItem(context.Background(), 9)
	require.NoError(t, err)
	res, err := client.ClearAll(context.Background())
	require.NoError(t, err)
	require.Nil(t, res.Cart)
	require.True(t, res.Snapshot().IsEmpty())
	require.Equal(t, []string{"/api/cart/items/9", "/api/cart"}, paths)
}

func TestRejectedCarriesServerMessage(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"message":"Lỗi cập nhật: Cart item not found"}`)
	})

	_, err := client.SetQuantity(context.Background(), 1, 2)
	require.Error(t, err)
	require.Equal(t, common.CodeRejected, common.CodeOf(err))
	require.Equal(t, "Lỗi cập nhật: Cart item not found", common.MessageOf(err, ""))
}

func TestRejectedWithoutMessageUsesFallback(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false}`)
	})

	_, err := client.RemoveItem(context.Background(), 1)
	require.Equal(t, common.CodeRejected, common.CodeOf(err))
	require.Equal(t, "Không thể xóa sản phẩm", common.MessageOf(err, ""))
}

func TestUnreadableMutationBodyIsTransport(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := client.ClearAll(context.Background())
	require.Equal(t, common.CodeTransport, common.CodeOf(err))
	require.Equal(t, "Không thể xóa giỏ hàng", common.MessageOf(err, ""))
}

func TestMutationsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.SetQuantity(context.Background(), 1, 2)
	require.Error(t, err)
	require.EqualValues(t, 1, calls.Load())
}

func TestTimeoutBecomesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client, err := cartclient.New(cartclient.Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.AddItem(context.Background(), cart.AddItemRequest{ProductID: 1})
	require.Equal(t, common.CodeTransport, common.CodeOf(err))
	require.Equal(t, "Không thể thêm vào giỏ hàng", common.MessageOf(err, ""))
}

func TestOpenBreakerShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(1, 0.5, time.Minute)
	client, err := cartclient.New(cartclient.Config{BaseURL: srv.URL, Breaker: breaker, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.FetchFullCart(context.Background())
	require.Error(t, err)
	_, err = client.FetchFullCart(context.Background())
	require.True(t, errors.Is(err, resilience.ErrOpenCircuit))
	require.Equal(t, common.CodeTransport, common.CodeOf(err))
	require.EqualValues(t, 1, calls.Load())
}

func TestCustomEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/shop/basket", r.URL.Path)
		_, _ = io.WriteString(w, `{"items":[]}`)
	}))
	defer srv.Close()

	client, err := cartclient.New(cartclient.Config{BaseURL: srv.URL, Endpoint: "shop/basket/", Logger: zerolog.Nop()})
	require.NoError(t, err)
	_, err = client.FetchFullCart(context.Background())
	require.NoError(t, err)
}
