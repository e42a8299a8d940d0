package cartapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-cartwidget/internal/cache"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrSizeNotFound    = errors.New("product size not found")
)

// Product is the catalog data a cart line shows.
type Product struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	MainImageURL  string `json:"mainImageUrl,omitempty"`
	StockQuantity int    `json:"stockQuantity"`
}

// Size is one priced size of a product. Its id is the priceId clients send.
type Size struct {
	PriceID        int64               `json:"priceId"`
	ProductID      int64               `json:"productId"`
	Label          string              `json:"label"`
	RegularPrice   decimal.Decimal     `json:"regularPrice"`
	PromotionPrice decimal.NullDecimal `json:"promotionPrice"`
	PromotionStart *time.Time          `json:"promotionStart,omitempty"`
	PromotionEnd   *time.Time          `json:"promotionEnd,omitempty"`
}

// PromotionActive reports whether now lies strictly inside a fully
// specified promotion window.
func (s Size) PromotionActive(now time.Time) bool {
	if !s.PromotionPrice.Valid || s.PromotionStart == nil || s.PromotionEnd == nil {
		return false
	}
	return now.After(*s.PromotionStart) && now.Before(*s.PromotionEnd)
}

// EffectivePrice is the unit price charged at now.
func (s Size) EffectivePrice(now time.Time) decimal.Decimal {
	if s.PromotionActive(now) {
		return s.PromotionPrice.Decimal
	}
	return s.RegularPrice
}

// Catalog resolves products and sizes for cart lines.
type Catalog interface {
	Product(ctx context.Context, id int64) (Product, error)
	Size(ctx context.Context, priceID int64) (Size, error)
}

// DBPool matches the *pgxpool.Pool methods the catalog uses.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const (
	productQuery = `SELECT product_id, product_name, COALESCE(description, ''), COALESCE(main_image_url, ''), stock_quantity
FROM products WHERE product_id = $1 AND is_active`
	sizeQuery = `SELECT price_id, product_id, size, regular_price, promotion_price, promotion_start, promotion_end
FROM product_sizes WHERE price_id = $1`
)

// PGCatalog reads the storefront's products and product_sizes tables.
type PGCatalog struct {
	pool DBPool
}

// NewPGCatalog constructs a PGCatalog.
func NewPGCatalog(pool DBPool) *PGCatalog {
	return &PGCatalog{pool: pool}
}

// Product implements Catalog.
func (c *PGCatalog) Product(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := c.pool.QueryRow(ctx, productQuery, id).Scan(&p.ID, &p.Name, &p.Description, &p.MainImageURL, &p.StockQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("query product %d: %w", id, err)
	}
	return p, nil
}

// Size implements Catalog.
func (c *PGCatalog) Size(ctx context.Context, priceID int64) (Size, error) {
	var s Size
	err := c.pool.QueryRow(ctx, sizeQuery, priceID).Scan(
		&s.PriceID, &s.ProductID, &s.Label, &s.RegularPrice, &s.PromotionPrice, &s.PromotionStart, &s.PromotionEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Size{}, ErrSizeNotFound
		}
		return Size{}, fmt.Errorf("query size %d: %w", priceID, err)
	}
	return s, nil
}

// CachedCatalog serves lookups from Redis before falling through to Next.
// Cache failures are logged and never fail a lookup.
type CachedCatalog struct {
	Next   Catalog
	Cache  *cache.JSON
	Logger zerolog.Logger
}

// Product implements Catalog.
func (c CachedCatalog) Product(ctx context.Context, id int64) (Product, error) {
	var p Product
	if hit, err := c.Cache.Get(ctx, cache.ProductKey(id), &p); err != nil {
		c.Logger.Warn().Err(err).Int64("product_id", id).Msg("catalog_cache_get_failed")
	} else if hit {
		return p, nil
	}
	p, err := c.Next.Product(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := c.Cache.Set(ctx, cache.ProductKey(id), p); err != nil {
		c.Logger.Warn().Err(err).Int64("product_id", id).Msg("catalog_cache_set_failed")
	}
	return p, nil
}

// Size implements Catalog.
func (c CachedCatalog) Size(ctx context.Context, priceID int64) (Size, error) {
	var s Size
	if hit, err := c.Cache.Get(ctx, cache.SizeKey(priceID), &s); err != nil {
		c.Logger.Warn().Err(err).Int64("price_id", priceID).Msg("catalog_cache_get_failed")
	} else if hit {
		return s, nil
	}
	s, err := c.Next.Size(ctx, priceID)
	if err != nil {
		return Size{}, err
	}
	if err := c.Cache.Set(ctx, cache.SizeKey(priceID), s); err != nil {
		c.Logger.Warn().Err(err).Int64("price_id", priceID).Msg("catalog_cache_set_failed")
	}
	return s, nil
}

// StaticCatalog is an in-memory catalog for local runs and tests.
type StaticCatalog struct {
	Products map[int64]Product
	Sizes    map[int64]Size
}

// Product implements Catalog.
func (c StaticCatalog) Product(_ context.Context, id int64) (Product, error) {
	p, ok := c.Products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// Size implements Catalog.
func (c StaticCatalog) Size(_ context.Context, priceID int64) (Size, error) {
	s, ok := c.Sizes[priceID]
	if !ok {
		return Size{}, ErrSizeNotFound
	}
	return s, nil
}

// DemoCatalog returns a small bakery catalog used when no database is
// configured.
func DemoCatalog() StaticCatalog {
	price := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	return StaticCatalog{
		Products: map[int64]Product{
			1: {ID: 1, Name: "Bánh mì bơ tỏi", MainImageURL: "/images/products/banh-mi-bo-toi.jpg", StockQuantity: 50},
			2: {ID: 2, Name: "Bánh kem dâu", Description: "Kem tươi, dâu Đà Lạt", StockQuantity: 5},
			3: {ID: 3, Name: "Bánh su kem", MainImageURL: "/images/products/su-kem.jpg", StockQuantity: 0},
		},
		Sizes: map[int64]Size{
			10: {PriceID: 10, ProductID: 1, Label: "Nhỏ", RegularPrice: price(25000)},
			11: {PriceID: 11, ProductID: 1, Label: "Lớn", RegularPrice: price(45000)},
			20: {PriceID: 20, ProductID: 2, Label: "16cm", RegularPrice: price(250000)},
			21: {PriceID: 21, ProductID: 2, Label: "20cm", RegularPrice: price(350000)},
			30: {PriceID: 30, ProductID: 3, Label: "Hộp 6", RegularPrice: price(60000)},
		},
	}
}
