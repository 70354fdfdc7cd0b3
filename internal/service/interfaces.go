package service

import (
	"context"
	"time"

	"analytics-service/internal/models"
	"analytics-service/internal/queue"
)

// EventStore is the append-only persistence surface for raw events. The job
// consumer depends on this interface, injected at construction, rather than
// resolving the store dynamically.
type EventStore interface {
	InsertEvents(ctx context.Context, events []models.Event) error
	ListEventsForDay(ctx context.Context, day time.Time) ([]models.Event, error)
	SumEventsForEntity(ctx context.Context, scope, entityID string, from, to time.Time) (*models.EventTotals, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DailyStatStore is the keyed aggregate surface consumed by the resolver's
// fast path and the feature builder
type DailyStatStore interface {
	UpsertProductDay(ctx context.Context, stat *models.ProductDailyStat) error
	UpsertStoreDay(ctx context.Context, stat *models.StoreDailyStat) error
	SumProductRange(ctx context.Context, productID string, from, to time.Time) (*models.EventTotals, error)
	SumStoreRange(ctx context.Context, storeID string, from, to time.Time) (*models.EventTotals, error)
	ListProductRange(ctx context.Context, productID string, from, to time.Time) ([]models.ProductDailyStat, error)
	ListStoreRange(ctx context.Context, storeID string, from, to time.Time) ([]models.StoreDailyStat, error)
	TopProductsByConversion(ctx context.Context, storeID string, from, to time.Time, limit int) ([]models.ConversionRanking, error)
	RevenueTrend(ctx context.Context, storeID *string, from, to time.Time) ([]models.RevenuePoint, error)
	SumAllProducts(ctx context.Context, until time.Time) ([]models.EntityTotals, error)
	SumAllStores(ctx context.Context, until time.Time) ([]models.EntityTotals, error)
}

// CatalogStore exposes the catalog reads the feature builder and the stock
// alerter need
type CatalogStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetPriceStats(ctx context.Context, productID string) (*models.PriceStats, error)
	GetRatingStats(ctx context.Context, productID string) (*models.RatingStats, error)
	GetInventoryQty(ctx context.Context, productID string) (int64, error)
	GetLastRestockAt(ctx context.Context, productID string) (*time.Time, error)
}

// Counters is the denormalized running-counter surface backing the hybrid
// quick-stats path
type Counters interface {
	GetCounters(ctx context.Context, scope, entityID string) (*models.RunningCounters, error)
	SetCounters(ctx context.Context, scope, entityID string, counters *models.RunningCounters) error
}

// JobQueue is the producer-side queue contract
type JobQueue interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}, opts ...queue.EnqueueOption) (string, error)
}

// AlertSink publishes stock alerts for the (external) notification service
type AlertSink interface {
	PublishStockAlert(ctx context.Context, alert *models.StockAlertEvent) error
}
