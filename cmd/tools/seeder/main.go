// Command seeder creates the catalog tables the cart API reads and fills
// them with the demo catalog.
package main

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-cartwidget/internal/cartapi"
	"github.com/noah-isme/toko-cartwidget/internal/obs"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	product_id     BIGINT PRIMARY KEY,
	product_name   TEXT NOT NULL,
	description    TEXT,
	main_image_url TEXT,
	stock_quantity INTEGER NOT NULL DEFAULT 0,
	is_active      BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE TABLE IF NOT EXISTS product_sizes (
	price_id        BIGINT PRIMARY KEY,
	product_id      BIGINT NOT NULL REFERENCES products (product_id),
	size            TEXT NOT NULL,
	regular_price   NUMERIC(12, 2) NOT NULL,
	promotion_price NUMERIC(12, 2),
	promotion_start TIMESTAMPTZ,
	promotion_end   TIMESTAMPTZ
);`

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(os.Stderr, "console", "info")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, schema); err != nil {
		logger.Fatal().Err(err).Msg("create catalog tables")
	}

	catalog := cartapi.DemoCatalog()
	batch := &pgx.Batch{}
	for _, id := range sortedKeys(catalog.Products) {
		p := catalog.Products[id]
		batch.Queue(`
			INSERT INTO products (product_id, product_name, description, main_image_url, stock_quantity)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
			ON CONFLICT (product_id) DO UPDATE SET
				product_name = EXCLUDED.product_name,
				description = EXCLUDED.description,
				main_image_url = EXCLUDED.main_image_url,
				stock_quantity = EXCLUDED.stock_quantity`,
			p.ID, p.Name, p.Description, p.MainImageURL, p.StockQuantity)
	}
	for _, id := range sortedKeys(catalog.Sizes) {
		s := catalog.Sizes[id]
		batch.Queue(`
			INSERT INTO product_sizes (price_id, product_id, size, regular_price, promotion_price, promotion_start, promotion_end)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (price_id) DO UPDATE SET
				size = EXCLUDED.size,
				regular_price = EXCLUDED.regular_price,
				promotion_price = EXCLUDED.promotion_price,
				promotion_start = EXCLUDED.promotion_start,
				promotion_end = EXCLUDED.promotion_end`,
			s.PriceID, s.ProductID, s.Label, s.RegularPrice, s.PromotionPrice, s.PromotionStart, s.PromotionEnd)
	}

	if err := conn.SendBatch(ctx, batch).Close(); err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	logger.Info().Int("products", len(catalog.Products)).Int("sizes", len(catalog.Sizes)).Msg("seeding completed")
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
