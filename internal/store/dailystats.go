package store

import (
	"context"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/models"
)

// UpsertProductDay writes one product daily stat row. Counters are fully
// overwritten, never incremented, so recomputing a day is idempotent.
func (s *Store) UpsertProductDay(ctx context.Context, stat *models.ProductDailyStat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_daily_stats (product_id, date, views, likes, add_to_carts, purchases, revenue, conversion_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, date) DO UPDATE SET
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			add_to_carts = EXCLUDED.add_to_carts,
			purchases = EXCLUDED.purchases,
			revenue = EXCLUDED.revenue,
			conversion_rate = EXCLUDED.conversion_rate`,
		stat.ProductID, stat.Date, stat.Views, stat.Likes, stat.AddToCarts,
		stat.Purchases, stat.Revenue, stat.ConversionRate)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "upsert product daily stat", err)
	}
	return nil
}

// UpsertStoreDay writes one store daily stat row, full overwrite semantics
func (s *Store) UpsertStoreDay(ctx context.Context, stat *models.StoreDailyStat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_daily_stats (store_id, date, views, likes, add_to_carts, purchases, checkouts, revenue, conversion_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (store_id, date) DO UPDATE SET
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			add_to_carts = EXCLUDED.add_to_carts,
			purchases = EXCLUDED.purchases,
			checkouts = EXCLUDED.checkouts,
			revenue = EXCLUDED.revenue,
			conversion_rate = EXCLUDED.conversion_rate`,
		stat.StoreID, stat.Date, stat.Views, stat.Likes, stat.AddToCarts,
		stat.Purchases, stat.Checkouts, stat.Revenue, stat.ConversionRate)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "upsert store daily stat", err)
	}
	return nil
}

// rangeSums carries summed counters plus the number of rows that matched,
// so callers can tell "all zeros" apart from "no rows at all"
type rangeSums struct {
	Days       int64   `db:"days"`
	Views      int64   `db:"views"`
	Likes      int64   `db:"likes"`
	AddToCarts int64   `db:"add_to_carts"`
	Purchases  int64   `db:"purchases"`
	Checkouts  int64   `db:"checkouts"`
	Revenue    float64 `db:"revenue"`
}

// SumProductRange sums product daily stats over [from, to] inclusive.
// Returns nil when no rows exist for the range; missing days mean no
// activity and contribute zero.
func (s *Store) SumProductRange(ctx context.Context, productID string, from, to time.Time) (*models.EventTotals, error) {
	var sums rangeSums
	err := s.db.GetContext(ctx, &sums, `
		SELECT COUNT(*) AS days,
		       COALESCE(SUM(views), 0) AS views,
		       COALESCE(SUM(likes), 0) AS likes,
		       COALESCE(SUM(add_to_carts), 0) AS add_to_carts,
		       COALESCE(SUM(purchases), 0) AS purchases,
		       0::bigint AS checkouts,
		       COALESCE(SUM(revenue), 0) AS revenue
		FROM product_daily_stats
		WHERE product_id = $1 AND date >= $2 AND date <= $3`,
		productID, from, to)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "sum product range", err)
	}
	if sums.Days == 0 {
		return nil, nil
	}
	return &models.EventTotals{
		Views:      sums.Views,
		Likes:      sums.Likes,
		AddToCarts: sums.AddToCarts,
		Purchases:  sums.Purchases,
		Revenue:    sums.Revenue,
	}, nil
}

// SumStoreRange sums store daily stats over [from, to] inclusive, nil when
// no rows exist
func (s *Store) SumStoreRange(ctx context.Context, storeID string, from, to time.Time) (*models.EventTotals, error) {
	var sums rangeSums
	err := s.db.GetContext(ctx, &sums, `
		SELECT COUNT(*) AS days,
		       COALESCE(SUM(views), 0) AS views,
		       COALESCE(SUM(likes), 0) AS likes,
		       COALESCE(SUM(add_to_carts), 0) AS add_to_carts,
		       COALESCE(SUM(purchases), 0) AS purchases,
		       COALESCE(SUM(checkouts), 0) AS checkouts,
		       COALESCE(SUM(revenue), 0) AS revenue
		FROM store_daily_stats
		WHERE store_id = $1 AND date >= $2 AND date <= $3`,
		storeID, from, to)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "sum store range", err)
	}
	if sums.Days == 0 {
		return nil, nil
	}
	return &models.EventTotals{
		Views:      sums.Views,
		Likes:      sums.Likes,
		AddToCarts: sums.AddToCarts,
		Purchases:  sums.Purchases,
		Checkouts:  sums.Checkouts,
		Revenue:    sums.Revenue,
	}, nil
}

// ListProductRange returns product daily stat rows over [from, to] in date
// order; days with no activity have no row
func (s *Store) ListProductRange(ctx context.Context, productID string, from, to time.Time) ([]models.ProductDailyStat, error) {
	var stats []models.ProductDailyStat
	err := s.db.SelectContext(ctx, &stats, `
		SELECT * FROM product_daily_stats
		WHERE product_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date`,
		productID, from, to)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "list product range", err)
	}
	return stats, nil
}

// ListStoreRange returns store daily stat rows over [from, to] in date order
func (s *Store) ListStoreRange(ctx context.Context, storeID string, from, to time.Time) ([]models.StoreDailyStat, error) {
	var stats []models.StoreDailyStat
	err := s.db.SelectContext(ctx, &stats, `
		SELECT * FROM store_daily_stats
		WHERE store_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date`,
		storeID, from, to)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "list store range", err)
	}
	return stats, nil
}

// TopProductsByConversion ranks a store's products by purchases/views over a
// range, view-threshold guarded at the caller
func (s *Store) TopProductsByConversion(ctx context.Context, storeID string, from, to time.Time, limit int) ([]models.ConversionRanking, error) {
	var rows []models.ConversionRanking
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id AS product_id,
		       COALESCE(SUM(d.views), 0) AS views,
		       COALESCE(SUM(d.purchases), 0) AS purchases,
		       COALESCE(SUM(d.revenue), 0) AS revenue
		FROM products p
		LEFT JOIN product_daily_stats d
		       ON d.product_id = p.id AND d.date >= $2 AND d.date <= $3
		WHERE p.store_id = $1
		GROUP BY p.id
		ORDER BY CASE WHEN COALESCE(SUM(d.views), 0) > 0
		              THEN COALESCE(SUM(d.purchases), 0)::float / SUM(d.views)
		              ELSE 0 END DESC
		LIMIT $4`,
		storeID, from, to, limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "top products by conversion", err)
	}
	return rows, nil
}

// SumAllProducts sums every product's daily stats up to and including the
// given day, feeding the running-counter reconciliation
func (s *Store) SumAllProducts(ctx context.Context, until time.Time) ([]models.EntityTotals, error) {
	var rows []models.EntityTotals
	err := s.db.SelectContext(ctx, &rows, `
		SELECT product_id AS entity_id,
		       COALESCE(SUM(views), 0) AS views,
		       COALESCE(SUM(likes), 0) AS likes,
		       COALESCE(SUM(purchases), 0) AS purchases,
		       COALESCE(SUM(revenue), 0) AS revenue
		FROM product_daily_stats
		WHERE date <= $1
		GROUP BY product_id`, until)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "sum all products", err)
	}
	return rows, nil
}

// SumAllStores sums every store's daily stats up to and including the given
// day
func (s *Store) SumAllStores(ctx context.Context, until time.Time) ([]models.EntityTotals, error) {
	var rows []models.EntityTotals
	err := s.db.SelectContext(ctx, &rows, `
		SELECT store_id AS entity_id,
		       COALESCE(SUM(views), 0) AS views,
		       COALESCE(SUM(likes), 0) AS likes,
		       COALESCE(SUM(purchases), 0) AS purchases,
		       COALESCE(SUM(revenue), 0) AS revenue
		FROM store_daily_stats
		WHERE date <= $1
		GROUP BY store_id`, until)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "sum all stores", err)
	}
	return rows, nil
}

// RevenueTrend returns the per-day revenue series. With a nil storeID the
// series spans all stores.
func (s *Store) RevenueTrend(ctx context.Context, storeID *string, from, to time.Time) ([]models.RevenuePoint, error) {
	var rows []models.RevenuePoint
	var err error
	if storeID != nil {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT date, COALESCE(SUM(revenue), 0) AS revenue, COALESCE(SUM(purchases), 0) AS purchases
			FROM store_daily_stats
			WHERE store_id = $1 AND date >= $2 AND date <= $3
			GROUP BY date ORDER BY date`,
			*storeID, from, to)
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT date, COALESCE(SUM(revenue), 0) AS revenue, COALESCE(SUM(purchases), 0) AS purchases
			FROM store_daily_stats
			WHERE date >= $1 AND date <= $2
			GROUP BY date ORDER BY date`,
			from, to)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "revenue trend", err)
	}
	return rows, nil
}
