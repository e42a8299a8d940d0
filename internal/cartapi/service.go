// Package cartapi is a reference implementation of the storefront cart API
// the widget talks to: a session-scoped guest cart priced from the catalog.
package cartapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cartwidget/internal/cart"
	"github.com/noah-isme/toko-cartwidget/internal/common"
	"github.com/noah-isme/toko-cartwidget/internal/lock"
	"github.com/noah-isme/toko-cartwidget/internal/obs"
	"github.com/noah-isme/toko-cartwidget/internal/pricing"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Store   Store
	Catalog Catalog
	// Locker serialises mutations of one session; nil disables locking.
	Locker  lock.Locker
	LockTTL time.Duration
	Now     func() time.Time
	Logger  zerolog.Logger
}

// Service implements the cart operations.
type Service struct {
	store    Store
	catalog  Catalog
	locker   lock.Locker
	lockTTL  time.Duration
	now      func() time.Time
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewService validates cfg and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("cartapi: store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("cartapi: catalog is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    cfg.Store,
		catalog:  cfg.Catalog,
		locker:   cfg.Locker,
		lockTTL:  cfg.LockTTL,
		now:      now,
		logger:   cfg.Logger.With().Str("component", "cartapi").Logger(),
		validate: validator.New(),
	}, nil
}

func badInput(message string) error {
	return common.NewAppError(common.CodeBadInput, message, http.StatusBadRequest, nil)
}

func notFound(message string) error {
	return common.NewAppError(common.CodeNotFound, message, http.StatusNotFound, nil)
}

// Get returns the session's cart, or an empty cart when there is none.
func (s *Service) Get(ctx context.Context, sessionID string) (cart.Cart, error) {
	rec, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return cart.Cart{}, err
	}
	if rec == nil {
		return cart.Empty(), nil
	}
	return s.project(ctx, rec), nil
}

// Add puts a product size into the cart. A line with the same product, size
// and price id absorbs the quantity; otherwise a new line is priced at the
// size's effective price.
func (s *Service) Add(ctx context.Context, sessionID string, req cart.AddItemRequest) (out cart.Cart, err error) {
	defer func() { countMutation("add", err) }()
	if err := s.validate.Struct(req); err != nil {
		return cart.Cart{}, badInput(validationMessage(err))
	}

	err = s.withSession(ctx, sessionID, func(ctx context.Context) error {
		product, err := s.catalog.Product(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return notFound(fmt.Sprintf("Product not found with id: %d", req.ProductID))
			}
			return err
		}
		if req.PriceID == nil {
			return badInput("Price information not provided")
		}
		size, err := s.catalog.Size(ctx, *req.PriceID)
		if err != nil {
			if errors.Is(err, ErrSizeNotFound) {
				return notFound(fmt.Sprintf("Product size not found with id: %d", *req.PriceID))
			}
			return err
		}

		rec, err := s.loadOrCreate(ctx, sessionID)
		if err != nil {
			return err
		}
		if i := findLine(rec.Lines, req); i >= 0 {
			rec.Lines[i].Quantity += req.Quantity
		} else {
			id, err := s.store.NextID(ctx, SeqItem)
			if err != nil {
				return err
			}
			rec.Lines = append(rec.Lines, Line{
				CartItemID:   id,
				ProductID:    product.ID,
				ProductName:  product.Name,
				MainImageURL: product.MainImageURL,
				Description:  product.Description,
				SizeSelected: req.SizeSelected,
				PriceID:      req.PriceID,
				Quantity:     req.Quantity,
				Price:        size.EffectivePrice(s.now()),
			})
		}
		if err := s.save(ctx, rec); err != nil {
			return err
		}
		out = s.project(ctx, rec)
		return nil
	})
	return out, err
}

// SetQuantity sets an absolute quantity; zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, sessionID string, cartItemID int64, quantity int) (out cart.Cart, err error) {
	defer func() { countMutation("set_quantity", err) }()
	err = s.withSession(ctx, sessionID, func(ctx context.Context) error {
		rec, i, err := s.loadLine(ctx, sessionID, cartItemID)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			rec.Lines = append(rec.Lines[:i], rec.Lines[i+1:]...)
		} else {
			rec.Lines[i].Quantity = quantity
		}
		if err := s.save(ctx, rec); err != nil {
			return err
		}
		out = s.project(ctx, rec)
		return nil
	})
	return out, err
}

// Remove deletes one line.
func (s *Service) Remove(ctx context.Context, sessionID string, cartItemID int64) (out cart.Cart, err error) {
	defer func() { countMutation("remove", err) }()
	err = s.withSession(ctx, sessionID, func(ctx context.Context) error {
		rec, i, err := s.loadLine(ctx, sessionID, cartItemID)
		if err != nil {
			return err
		}
		rec.Lines = append(rec.Lines[:i], rec.Lines[i+1:]...)
		if err := s.save(ctx, rec); err != nil {
			return err
		}
		out = s.project(ctx, rec)
		return nil
	})
	return out, err
}

// Clear deletes the session's cart. Clearing a missing cart succeeds.
func (s *Service) Clear(ctx context.Context, sessionID string) (err error) {
	defer func() { countMutation("clear", err) }()
	return s.withSession(ctx, sessionID, func(ctx context.Context) error {
		return s.store.Delete(ctx, sessionID)
	})
}

func (s *Service) withSession(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, "cart:"+sessionID, s.lockTTL, fn)
}

func (s *Service) loadOrCreate(ctx context.Context, sessionID string) (*Record, error) {
	rec, err := s.store.Load(ctx, sessionID)
	if err != nil || rec != nil {
		return rec, err
	}
	id, err := s.store.NextID(ctx, SeqCart)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int64("cart_id", id).Msg("cart_created")
	return &Record{CartID: id, SessionID: sessionID}, nil
}

func (s *Service) loadLine(ctx context.Context, sessionID string, cartItemID int64) (*Record, int, error) {
	rec, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, -1, err
	}
	if rec != nil {
		for i, line := range rec.Lines {
			if line.CartItemID == cartItemID {
				return rec, i, nil
			}
		}
	}
	return nil, -1, notFound("Cart item not found")
}

func (s *Service) save(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = s.now()
	return s.store.Save(ctx, rec)
}

// project builds the wire cart. Stock comes from the live catalog; a product
// that can no longer be read keeps its stored details and no stock bound.
func (s *Service) project(ctx context.Context, rec *Record) cart.Cart {
	priced := make([]pricing.Item, len(rec.Lines))
	for i, line := range rec.Lines {
		priced[i] = pricing.Item{Qty: line.Quantity, UnitPrice: line.Price}
	}
	totals := pricing.Compute(priced)

	cartID := rec.CartID
	out := cart.Cart{
		CartID:      &cartID,
		SessionID:   rec.SessionID,
		Items:       make([]cart.Item, 0, len(rec.Lines)),
		TotalAmount: totals.Total,
		TotalItems:  totals.TotalItems,
	}
	for i, line := range rec.Lines {
		item := cart.Item{
			CartItemID:   line.CartItemID,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			MainImageURL: line.MainImageURL,
			Description:  line.Description,
			Quantity:     line.Quantity,
			Price:        line.Price,
			SubTotal:     totals.Lines[i],
			PriceID:      line.PriceID,
		}
		if line.SizeSelected != nil {
			item.SizeSelected = *line.SizeSelected
		}
		if product, err := s.catalog.Product(ctx, line.ProductID); err == nil {
			stock := product.StockQuantity
			item.StockQuantity = &stock
		} else {
			s.logger.Warn().Err(err).Int64("product_id", line.ProductID).Msg("cart_product_lookup_failed")
		}
		out.Items = append(out.Items, item)
	}
	return out
}

func findLine(lines []Line, req cart.AddItemRequest) int {
	for i, line := range lines {
		if line.ProductID == req.ProductID && sameString(line.SizeSelected, req.SizeSelected) && sameInt64(line.PriceID, req.PriceID) {
			return i
		}
	}
	return -1
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameInt64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Quantity":
			return "Quantity must be at least 1"
		case "ProductID":
			return "Product id is required"
		}
	}
	return "Invalid request"
}

func countMutation(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case common.CodeOf(err) == common.CodeBadInput || common.CodeOf(err) == common.CodeNotFound:
		result = "rejected"
	default:
		result = "error"
	}
	obs.CountMutation(op, result)
}
