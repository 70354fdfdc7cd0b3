package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.KindNotFound, "product not found: %s", id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "get product", err)
	}
	return &product, nil
}

// GetPriceStats computes min/avg/max over a product's current variant prices
func (s *Store) GetPriceStats(ctx context.Context, productID string) (*models.PriceStats, error) {
	var stats models.PriceStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT COALESCE(MIN(price), 0) AS min_price,
		       COALESCE(AVG(price), 0) AS avg_price,
		       COALESCE(MAX(price), 0) AS max_price
		FROM variants WHERE product_id = $1`, productID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "get price stats", err)
	}
	return &stats, nil
}

// GetRatingStats computes the review aggregate for a product
func (s *Store) GetRatingStats(ctx context.Context, productID string) (*models.RatingStats, error) {
	var stats models.RatingStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT COALESCE(AVG(rating), 0) AS avg_rating,
		       COUNT(*) AS rating_count
		FROM reviews WHERE product_id = $1`, productID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "get rating stats", err)
	}
	return &stats, nil
}

// GetInventoryQty sums the current on-hand quantity across a product's
// variants
func (s *Store) GetInventoryQty(ctx context.Context, productID string) (int64, error) {
	var qty int64
	err := s.db.GetContext(ctx, &qty, `
		SELECT COALESCE(SUM(i.quantity), 0)
		FROM inventory i
		JOIN variants v ON v.id = i.variant_id
		WHERE v.product_id = $1`, productID)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, "get inventory qty", err)
	}
	return qty, nil
}

// GetLastRestockAt returns the most recent inventory increase for a product,
// or nil when no restock is on record
func (s *Store) GetLastRestockAt(ctx context.Context, productID string) (*time.Time, error) {
	var ts sql.NullTime
	err := s.db.GetContext(ctx, &ts, `
		SELECT MAX(i.updated_at)
		FROM inventory i
		JOIN variants v ON v.id = i.variant_id
		WHERE v.product_id = $1 AND i.quantity > 0`, productID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "get last restock", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	return &ts.Time, nil
}
