package cartapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cartwidget/internal/cart"
	"github.com/noah-isme/toko-cartwidget/internal/common"
)

// Messages returned to the storefront.
const (
	msgAdded   = "Sản phẩm đã được thêm vào giỏ hàng!"
	msgUpdated = "Giỏ hàng đã được cập nhật"
	msgRemoved = "Sản phẩm đã được xóa khỏi giỏ hàng"
	msgCleared = "Giỏ hàng đã được xóa"

	prefixAdd     = "Lỗi: "
	prefixUpdate  = "Lỗi cập nhật: "
	prefixRemove  = "Lỗi xóa sản phẩm: "
	prefixClear   = "Lỗi xóa giỏ hàng: "
	prefixPreview = "Lỗi tải giỏ hàng: "

	internalMessage = "Đã xảy ra lỗi, vui lòng thử lại"
)

// Handler exposes the session cart endpoints.
type Handler struct {
	service      *Service
	cookieName   string
	cookieSecure bool
	cookieMaxAge time.Duration
	logger       zerolog.Logger
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service      *Service
	CookieName   string
	CookieSecure bool
	// CookieMaxAge should match the cart store TTL.
	CookieMaxAge time.Duration
	Logger       zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	name := cfg.CookieName
	if name == "" {
		name = "CART_SESSION"
	}
	return &Handler{
		service:      cfg.Service,
		cookieName:   name,
		cookieSecure: cfg.CookieSecure,
		cookieMaxAge: cfg.CookieMaxAge,
		logger:       cfg.Logger,
	}
}

// Routes mounts the cart endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/cart", func(c chi.Router) {
		c.Get("/", h.Get)
		c.Post("/", h.Add)
		c.Delete("/", h.Clear)
		c.Get("/preview", h.Preview)
		c.Put("/items/{cartItemId}", h.SetQuantity)
		c.Delete("/items/{cartItemId}", h.Remove)
	})
}

// Get handles GET /api/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	c, err := h.service.Get(r.Context(), h.session(w, r))
	if err != nil {
		h.logger.Error().Err(err).Msg("cart_load_failed")
		common.JSON(w, http.StatusInternalServerError, cart.Result{Success: false, Message: internalMessage})
		return
	}
	common.JSON(w, http.StatusOK, c)
}

// Preview handles GET /api/cart/preview, the header summary.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	c, err := h.service.Get(r.Context(), h.session(w, r))
	if err != nil {
		h.logger.Error().Err(err).Msg("cart_preview_failed")
		common.JSON(w, http.StatusBadRequest, cart.Preview{Success: false, Message: prefixPreview + internalMessage})
		return
	}
	common.JSON(w, http.StatusOK, cart.Preview{
		Success:     true,
		TotalItems:  c.TotalItems,
		TotalAmount: c.TotalAmount,
		Items:       c.Items,
	})
}

// Add handles POST /api/cart.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req cart.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, prefixAdd, common.NewAppError(common.CodeBadInput, "Invalid request body", http.StatusBadRequest, err))
		return
	}
	c, err := h.service.Add(r.Context(), h.session(w, r), req)
	if err != nil {
		h.fail(w, prefixAdd, err)
		return
	}
	common.JSON(w, http.StatusOK, cart.Result{Success: true, Message: msgAdded, Cart: &c, RedirectURL: "/cart"})
}

// SetQuantity handles PUT /api/cart/items/{cartItemId}?quantity=n.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	itemID, err := h.itemID(r)
	if err != nil {
		h.fail(w, prefixUpdate, err)
		return
	}
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil {
		h.fail(w, prefixUpdate, common.NewAppError(common.CodeBadInput, "Quantity is required", http.StatusBadRequest, err))
		return
	}
	c, err := h.service.SetQuantity(r.Context(), h.session(w, r), itemID, quantity)
	if err != nil {
		h.fail(w, prefixUpdate, err)
		return
	}
	common.JSON(w, http.StatusOK, cart.Result{Success: true, Message: msgUpdated, Cart: &c})
}

// Remove handles DELETE /api/cart/items/{cartItemId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	itemID, err := h.itemID(r)
	if err != nil {
		h.fail(w, prefixRemove, err)
		return
	}
	c, err := h.service.Remove(r.Context(), h.session(w, r), itemID)
	if err != nil {
		h.fail(w, prefixRemove, err)
		return
	}
	common.JSON(w, http.StatusOK, cart.Result{Success: true, Message: msgRemoved, Cart: &c})
}

// Clear handles DELETE /api/cart. The response carries no cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if err := h.service.Clear(r.Context(), h.session(w, r)); err != nil {
		h.fail(w, prefixClear, err)
		return
	}
	common.JSON(w, http.StatusOK, cart.Result{Success: true, Message: msgCleared})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) itemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "cartItemId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewAppError(common.CodeBadInput, "Invalid cart item id", http.StatusBadRequest, err)
	}
	return id, nil
}

// session returns the caller's cart session id, issuing a cookie for new
// or tampered sessions.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(h.cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// fail answers in the {success:false,message} shape. Domain errors keep
// their message behind the operation prefix and answer 400; anything else
// is logged and hidden.
func (h *Handler) fail(w http.ResponseWriter, prefix string, err error) {
	switch common.CodeOf(err) {
	case common.CodeBadInput, common.CodeNotFound:
		common.JSON(w, http.StatusBadRequest, cart.Result{Success: false, Message: prefix + common.MessageOf(err, internalMessage)})
	default:
		h.logger.Error().Err(err).Msg("cart_request_failed")
		common.JSON(w, http.StatusInternalServerError, cart.Result{Success: false, Message: prefix + internalMessage})
	}
}
