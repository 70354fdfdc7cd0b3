package service

import (
	"context"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/models"
	"analytics-service/internal/util"

	"go.uber.org/zap"
)

// MetricsService resolves conversion metrics by choosing among the
// pre-aggregated, raw-event, and hybrid-cached computation paths
type MetricsService struct {
	events   EventStore
	stats    DailyStatStore
	counters Counters
	logger   *zap.Logger
	now      func() time.Time
}

// NewMetricsService creates a new metrics service
func NewMetricsService(events EventStore, stats DailyStatStore, counters Counters) *MetricsService {
	return &MetricsService{
		events:   events,
		stats:    stats,
		counters: counters,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// ResolveConversion returns conversion metrics for an entity over
// [from, to], tagged with the path that actually produced the numbers.
//
// Path policy, in order:
//  1. aggregatedStats — the range lies fully in the past, so daily stat
//     rows can exist; sum them.
//  2. rawEvents — the range needs same-day data, or the aggregated path
//     found no rows; fold raw events directly.
//
// An entity with no rows in any source yields a zero-valued result, never
// an error.
func (s *MetricsService) ResolveConversion(ctx context.Context, entityID, scope string, from, to time.Time) (*models.ConversionMetrics, error) {
	ctx, span := util.StartSpan(ctx, "MetricsService.ResolveConversion")
	defer span.End()

	if scope != models.ScopeStore && scope != models.ScopeProduct {
		return nil, errs.Newf(errs.KindValidation, "invalid scope %q", scope)
	}

	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	today := s.now().UTC().Truncate(24 * time.Hour)

	if to.Before(today) {
		totals, err := s.sumAggregated(ctx, entityID, scope, from, to)
		if err != nil {
			return nil, err
		}
		if totals != nil {
			util.ResolverPathTotal.WithLabelValues(models.SourceAggregatedStats).Inc()
			return buildMetrics(totals, scope, models.SourceAggregatedStats), nil
		}
	}

	// Raw fallback covers not-yet-aggregated days and same-day requests.
	// The scan bound is exclusive, so extend one day past "to".
	totals, err := s.events.SumEventsForEntity(ctx, scope, entityID, from, to.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	util.ResolverPathTotal.WithLabelValues(models.SourceRawEvents).Inc()
	return buildMetrics(totals, scope, models.SourceRawEvents), nil
}

// GetQuickStats serves all-time-biased figures for summary widgets: the
// denormalized running counters (reconciled through yesterday) combined
// with a raw-event window covering today
func (s *MetricsService) GetQuickStats(ctx context.Context, entityID, scope string) (*models.ConversionMetrics, error) {
	ctx, span := util.StartSpan(ctx, "MetricsService.GetQuickStats")
	defer span.End()

	if scope != models.ScopeStore && scope != models.ScopeProduct {
		return nil, errs.Newf(errs.KindValidation, "invalid scope %q", scope)
	}

	counters, err := s.counters.GetCounters(ctx, scope, entityID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "read running counters", err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	recent, err := s.events.SumEventsForEntity(ctx, scope, entityID, today, today.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	totals := &models.EventTotals{
		Views:      counters.Views + recent.Views,
		Likes:      counters.Likes + recent.Likes,
		AddToCarts: recent.AddToCarts,
		Purchases:  counters.Purchases + recent.Purchases,
		Checkouts:  recent.Checkouts,
		Revenue:    counters.Revenue + recent.Revenue,
	}

	util.ResolverPathTotal.WithLabelValues(models.SourceHybridCached).Inc()
	return buildMetrics(totals, scope, models.SourceHybridCached), nil
}

// GetTopByConversion ranks a store's products by conversion rate over a range
func (s *MetricsService) GetTopByConversion(ctx context.Context, storeID string, from, to time.Time, limit int) ([]models.ConversionRanking, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.stats.TopProductsByConversion(ctx, storeID, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].ConversionRate = safeRate(rows[i].Purchases, rows[i].Views)
	}
	return rows, nil
}

// GetRevenueTrends returns the per-day revenue series, optionally scoped to
// one store
func (s *MetricsService) GetRevenueTrends(ctx context.Context, storeID *string, from, to time.Time) ([]models.RevenuePoint, error) {
	return s.stats.RevenueTrend(ctx, storeID, from.UTC(), to.UTC())
}

// GetFunnel folds raw events for a store or product into stage counts and
// stage-to-stage rates
func (s *MetricsService) GetFunnel(ctx context.Context, storeID, productID *string, from, to time.Time) (*models.Funnel, error) {
	scope := models.ScopeStore
	var entityID string
	switch {
	case productID != nil && *productID != "":
		scope = models.ScopeProduct
		entityID = *productID
	case storeID != nil && *storeID != "":
		entityID = *storeID
	default:
		return nil, errs.New(errs.KindValidation, "funnel requires store_id or product_id")
	}

	totals, err := s.events.SumEventsForEntity(ctx, scope, entityID, from.UTC(), to.UTC().Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	return &models.Funnel{
		Views:      totals.Views,
		AddToCarts: totals.AddToCarts,
		Checkouts:  totals.Checkouts,
		Purchases:  totals.Purchases,
		ViewToCart: safeRate(totals.AddToCarts, totals.Views),
		CartToBuy:  safeRate(totals.Purchases, totals.AddToCarts),
		ViewToBuy:  safeRate(totals.Purchases, totals.Views),
	}, nil
}

// ReconcileCounters rebuilds the Redis running counters from daily stats up
// to the end of yesterday, consumed by the PROCESS_METRICS job
func (s *MetricsService) ReconcileCounters(ctx context.Context) error {
	yesterday := s.now().UTC().Truncate(24 * time.Hour).Add(-24 * time.Hour)

	products, err := s.stats.SumAllProducts(ctx, yesterday)
	if err != nil {
		return err
	}
	for _, p := range products {
		counters := &models.RunningCounters{
			Views:     p.Views,
			Likes:     p.Likes,
			Purchases: p.Purchases,
			Revenue:   p.Revenue,
		}
		if err := s.counters.SetCounters(ctx, models.ScopeProduct, p.EntityID, counters); err != nil {
			return errs.Wrap(errs.KindTransient, "set product counters", err)
		}
	}

	stores, err := s.stats.SumAllStores(ctx, yesterday)
	if err != nil {
		return err
	}
	for _, st := range stores {
		counters := &models.RunningCounters{
			Views:     st.Views,
			Likes:     st.Likes,
			Purchases: st.Purchases,
			Revenue:   st.Revenue,
		}
		if err := s.counters.SetCounters(ctx, models.ScopeStore, st.EntityID, counters); err != nil {
			return errs.Wrap(errs.KindTransient, "set store counters", err)
		}
	}

	s.logger.Info("Running counters reconciled",
		zap.Int("products", len(products)),
		zap.Int("stores", len(stores)))
	return nil
}

func (s *MetricsService) sumAggregated(ctx context.Context, entityID, scope string, from, to time.Time) (*models.EventTotals, error) {
	if scope == models.ScopeStore {
		return s.stats.SumStoreRange(ctx, entityID, from, to)
	}
	return s.stats.SumProductRange(ctx, entityID, from, to)
}

// buildMetrics normalizes totals into the derived metrics object. Nil or
// negative inputs are treated as zero before the division guards.
func buildMetrics(totals *models.EventTotals, scope, source string) *models.ConversionMetrics {
	if totals == nil {
		totals = &models.EventTotals{}
	}

	m := &models.ConversionMetrics{
		Views:      nonNegative(totals.Views),
		Purchases:  nonNegative(totals.Purchases),
		AddToCarts: nonNegative(totals.AddToCarts),
		Revenue:    totals.Revenue,
		Source:     source,
	}
	if m.Revenue < 0 {
		m.Revenue = 0
	}
	m.ConversionRate = safeRate(m.Purchases, m.Views)
	m.AddToCartRate = safeRate(m.AddToCarts, m.Views)

	if scope == models.ScopeStore {
		m.Checkouts = nonNegative(totals.Checkouts)
		m.CheckoutRate = safeRate(m.Checkouts, m.Views)
	}
	return m
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
