package service

import (
	"context"
	"encoding/json"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/models"
	"analytics-service/internal/util"

	"go.uber.org/zap"
)

// AggregateResult reports how many entities a daily run touched
type AggregateResult struct {
	StoresAggregated   int `json:"stores_aggregated"`
	ProductsAggregated int `json:"products_aggregated"`
}

// AggregationService folds raw events into per-entity daily stat rows
type AggregationService struct {
	events EventStore
	stats  DailyStatStore
	logger *zap.Logger
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(events EventStore, stats DailyStatStore) *AggregationService {
	return &AggregationService{
		events: events,
		stats:  stats,
		logger: util.GetLogger(),
	}
}

// AggregateDay scans every event of the UTC calendar day, folds them per
// store and per product, and upserts one row per entity touched that day.
// Counters are fully overwritten, so re-running the same day is idempotent;
// entities without events get no row at all.
func (s *AggregationService) AggregateDay(ctx context.Context, date time.Time) (*AggregateResult, error) {
	start := time.Now()
	day := date.UTC().Truncate(24 * time.Hour)

	events, err := s.events.ListEventsForDay(ctx, day)
	if err != nil {
		util.AggregationRunsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	byProduct := make(map[string]*models.EventTotals)
	byStore := make(map[string]*models.EventTotals)
	for _, ev := range events {
		if ev.ProductID != nil && *ev.ProductID != "" {
			fold(byProduct, *ev.ProductID, ev)
		}
		if ev.StoreID != nil && *ev.StoreID != "" {
			fold(byStore, *ev.StoreID, ev)
		}
	}

	for productID, totals := range byProduct {
		stat := &models.ProductDailyStat{
			ProductID:      productID,
			Date:           day,
			Views:          totals.Views,
			Likes:          totals.Likes,
			AddToCarts:     totals.AddToCarts,
			Purchases:      totals.Purchases,
			Revenue:        totals.Revenue,
			ConversionRate: safeRate(totals.Purchases, totals.Views),
		}
		if err := s.stats.UpsertProductDay(ctx, stat); err != nil {
			util.AggregationRunsTotal.WithLabelValues("failure").Inc()
			return nil, err
		}
	}

	for storeID, totals := range byStore {
		stat := &models.StoreDailyStat{
			StoreID:        storeID,
			Date:           day,
			Views:          totals.Views,
			Likes:          totals.Likes,
			AddToCarts:     totals.AddToCarts,
			Purchases:      totals.Purchases,
			Checkouts:      totals.Checkouts,
			Revenue:        totals.Revenue,
			ConversionRate: safeRate(totals.Purchases, totals.Views),
		}
		if err := s.stats.UpsertStoreDay(ctx, stat); err != nil {
			util.AggregationRunsTotal.WithLabelValues("failure").Inc()
			return nil, err
		}
	}

	util.AggregationRunsTotal.WithLabelValues("success").Inc()
	util.AggregationDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("Day aggregated",
		zap.String("date", day.Format("2006-01-02")),
		zap.Int("stores", len(byStore)),
		zap.Int("products", len(byProduct)),
		zap.Int("events", len(events)))

	return &AggregateResult{
		StoresAggregated:   len(byStore),
		ProductsAggregated: len(byProduct),
	}, nil
}

// ProcessAggregateJob consumes an AGGREGATE_DAILY job payload. Failures
// propagate out of the job so the queue retry policy re-runs it; partial
// writes are fine because the next run overwrites the same rows.
func (s *AggregationService) ProcessAggregateJob(ctx context.Context, payload []byte) error {
	var p models.AggregateDailyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return errs.Wrap(errs.KindFatal, "corrupt AGGREGATE_DAILY payload", err)
	}

	date, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return errs.Wrap(errs.KindFatal, "invalid aggregation date", err)
	}

	_, err = s.AggregateDay(ctx, date)
	return err
}

func fold(m map[string]*models.EventTotals, key string, ev models.Event) {
	totals, ok := m[key]
	if !ok {
		totals = &models.EventTotals{}
		m[key] = totals
	}
	switch ev.EventType {
	case models.EventTypeView:
		totals.Views++
	case models.EventTypeLike:
		totals.Likes++
	case models.EventTypeUnlike:
		if totals.Likes > 0 {
			totals.Likes--
		}
	case models.EventTypeAddToCart:
		totals.AddToCarts++
	case models.EventTypeCheckout:
		totals.Checkouts++
	case models.EventTypePurchase:
		totals.Purchases++
		if ev.Value != nil {
			totals.Revenue += *ev.Value
		}
	}
}

// safeRate divides purchases by views with a zero guard; rates are always
// in [0, 1] and never NaN
func safeRate(num, den int64) float64 {
	if den <= 0 || num < 0 {
		return 0
	}
	rate := float64(num) / float64(den)
	if rate > 1 {
		return 1
	}
	return rate
}
