package service

import (
	"context"
	"testing"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsService(events EventStore, stats DailyStatStore, counters Counters, now time.Time) *MetricsService {
	svc := NewMetricsService(events, stats, counters)
	svc.now = func() time.Time { return now }
	return svc
}

func TestResolveConversionAggregatedPath(t *testing.T) {
	today := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	stats := newFakeStatStore()
	require.NoError(t, stats.UpsertProductDay(context.Background(), &models.ProductDailyStat{
		ProductID: "p1", Date: day, Views: 100, Purchases: 10, Revenue: 500,
	}))

	events := &fakeEventStore{}
	svc := newMetricsService(events, stats, newFakeCounters(), today)

	m, err := svc.ResolveConversion(context.Background(), "p1", models.ScopeProduct, day, day)

	require.NoError(t, err)
	assert.Equal(t, models.SourceAggregatedStats, m.Source)
	assert.Equal(t, int64(100), m.Views)
	assert.Equal(t, int64(10), m.Purchases)
	assert.Equal(t, 500.0, m.Revenue)
	assert.Equal(t, 0.1, m.ConversionRate)
	assert.Equal(t, 0, events.sumCalls, "aggregated path must not scan raw events")
}

func TestResolveConversionRawFallbackWhenNoRows(t *testing.T) {
	today := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	events := &fakeEventStore{events: []models.Event{
		eventAt(day, 1, models.EventTypeView, "p1", "s1", nil),
		eventAt(day, 2, models.EventTypePurchase, "p1", "s1", floatPtr(20)),
	}}
	svc := newMetricsService(events, newFakeStatStore(), newFakeCounters(), today)

	m, err := svc.ResolveConversion(context.Background(), "p1", models.ScopeProduct, day, day)

	require.NoError(t, err)
	assert.Equal(t, models.SourceRawEvents, m.Source)
	assert.Equal(t, int64(1), m.Views)
	assert.Equal(t, int64(1), m.Purchases)
	assert.Equal(t, 20.0, m.Revenue)
	assert.Equal(t, 1.0, m.ConversionRate)
}

func TestResolveConversionSameDayUsesRawEvents(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	today := now.Truncate(24 * time.Hour)

	stats := newFakeStatStore()
	// Even with a (stale) row present for today, same-day ranges go raw
	require.NoError(t, stats.UpsertProductDay(context.Background(), &models.ProductDailyStat{
		ProductID: "p1", Date: today, Views: 999,
	}))
	events := &fakeEventStore{events: []models.Event{
		eventAt(today, 9, models.EventTypeView, "p1", "s1", nil),
	}}
	svc := newMetricsService(events, stats, newFakeCounters(), now)

	m, err := svc.ResolveConversion(context.Background(), "p1", models.ScopeProduct, today, today)

	require.NoError(t, err)
	assert.Equal(t, models.SourceRawEvents, m.Source)
	assert.Equal(t, int64(1), m.Views)
}

func TestResolveConversionUnknownEntityIsZeroValued(t *testing.T) {
	today := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	svc := newMetricsService(&fakeEventStore{}, newFakeStatStore(), newFakeCounters(), today)

	m, err := svc.ResolveConversion(context.Background(), "ghost", models.ScopeProduct, day, day)

	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Views)
	assert.Equal(t, int64(0), m.Purchases)
	assert.Equal(t, 0.0, m.Revenue)
	assert.Equal(t, 0.0, m.ConversionRate)
	assert.Equal(t, models.SourceRawEvents, m.Source)
}

func TestResolveConversionRejectsBadScope(t *testing.T) {
	svc := newMetricsService(&fakeEventStore{}, newFakeStatStore(), newFakeCounters(), time.Now())

	_, err := svc.ResolveConversion(context.Background(), "p1", "warehouse", time.Now(), time.Now())

	assert.True(t, errs.IsValidation(err))
}

func TestResolveConversionStoreScopeIncludesCheckouts(t *testing.T) {
	today := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	stats := newFakeStatStore()
	require.NoError(t, stats.UpsertStoreDay(context.Background(), &models.StoreDailyStat{
		StoreID: "s1", Date: day, Views: 40, Checkouts: 8, Purchases: 4,
	}))
	svc := newMetricsService(&fakeEventStore{}, stats, newFakeCounters(), today)

	m, err := svc.ResolveConversion(context.Background(), "s1", models.ScopeStore, day, day)

	require.NoError(t, err)
	assert.Equal(t, int64(8), m.Checkouts)
	assert.Equal(t, 0.2, m.CheckoutRate)
}

func TestRecordAggregateResolveRoundTrip(t *testing.T) {
	// Full pipeline: ingest two events, aggregate the day, resolve the range
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	events := &fakeEventStore{events: []models.Event{
		eventAt(day, 10, models.EventTypeView, "p1", "s1", nil),
		eventAt(day, 11, models.EventTypePurchase, "p1", "s1", floatPtr(50)),
	}}
	stats := newFakeStatStore()

	_, err := NewAggregationService(events, stats).AggregateDay(context.Background(), day)
	require.NoError(t, err)

	svc := newMetricsService(events, stats, newFakeCounters(), now)
	m, err := svc.ResolveConversion(context.Background(), "p1", models.ScopeProduct, day, day)

	require.NoError(t, err)
	assert.Equal(t, models.SourceAggregatedStats, m.Source)
	assert.Equal(t, int64(1), m.Views)
	assert.Equal(t, int64(1), m.Purchases)
	assert.Equal(t, 50.0, m.Revenue)
	assert.Equal(t, 1.0, m.ConversionRate)
}

func TestAggregatedAndRawPathsAgree(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	events := &fakeEventStore{events: []models.Event{
		eventAt(day, 1, models.EventTypeView, "p1", "s1", nil),
		eventAt(day, 2, models.EventTypeView, "p1", "s1", nil),
		eventAt(day, 3, models.EventTypeView, "p1", "s1", nil),
		eventAt(day, 4, models.EventTypeAddToCart, "p1", "s1", nil),
		eventAt(day, 5, models.EventTypePurchase, "p1", "s1", floatPtr(19.99)),
	}}
	stats := newFakeStatStore()
	_, err := NewAggregationService(events, stats).AggregateDay(context.Background(), day)
	require.NoError(t, err)

	aggregated, err := newMetricsService(events, stats, newFakeCounters(), now).
		ResolveConversion(context.Background(), "p1", models.ScopeProduct, day, day)
	require.NoError(t, err)

	raw, err := newMetricsService(events, newFakeStatStore(), newFakeCounters(), now).
		ResolveConversion(context.Background(), "p1", models.ScopeProduct, day, day)
	require.NoError(t, err)

	assert.Equal(t, models.SourceAggregatedStats, aggregated.Source)
	assert.Equal(t, models.SourceRawEvents, raw.Source)
	assert.Equal(t, raw.Views, aggregated.Views)
	assert.Equal(t, raw.AddToCarts, aggregated.AddToCarts)
	assert.Equal(t, raw.Purchases, aggregated.Purchases)
	assert.Equal(t, raw.Revenue, aggregated.Revenue)
	assert.Equal(t, raw.ConversionRate, aggregated.ConversionRate)
}

func TestQuickStatsCombinesCountersAndToday(t *testing.T) {
	now := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	today := now.Truncate(24 * time.Hour)

	counters := newFakeCounters()
	require.NoError(t, counters.SetCounters(context.Background(), models.ScopeProduct, "p1",
		&models.RunningCounters{Views: 1000, Purchases: 100, Revenue: 5000}))

	events := &fakeEventStore{events: []models.Event{
		eventAt(today, 9, models.EventTypeView, "p1", "s1", nil),
		eventAt(today, 10, models.EventTypePurchase, "p1", "s1", floatPtr(30)),
		// Yesterday's event is already in the counters, must not double count
		eventAt(today.Add(-24*time.Hour), 9, models.EventTypeView, "p1", "s1", nil),
	}}

	svc := newMetricsService(events, newFakeStatStore(), counters, now)
	m, err := svc.GetQuickStats(context.Background(), "p1", models.ScopeProduct)

	require.NoError(t, err)
	assert.Equal(t, models.SourceHybridCached, m.Source)
	assert.Equal(t, int64(1001), m.Views)
	assert.Equal(t, int64(101), m.Purchases)
	assert.Equal(t, 5030.0, m.Revenue)
}

func TestQuickStatsUnknownEntityIsZeroValued(t *testing.T) {
	svc := newMetricsService(&fakeEventStore{}, newFakeStatStore(), newFakeCounters(),
		time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC))

	m, err := svc.GetQuickStats(context.Background(), "ghost", models.ScopeProduct)

	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Views)
	assert.Equal(t, 0.0, m.ConversionRate)
	assert.Equal(t, models.SourceHybridCached, m.Source)
}

func TestGetFunnelProductTakesPrecedence(t *testing.T) {
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	events := &fakeEventStore{events: []models.Event{
		eventAt(day, 1, models.EventTypeView, "p1", "s1", nil),
		eventAt(day, 2, models.EventTypeView, "p1", "s1", nil),
		eventAt(day, 3, models.EventTypeAddToCart, "p1", "s1", nil),
		eventAt(day, 4, models.EventTypePurchase, "p1", "s1", floatPtr(10)),
		eventAt(day, 5, models.EventTypeView, "p2", "s1", nil),
	}}
	svc := newMetricsService(events, newFakeStatStore(), newFakeCounters(),
		time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))

	f, err := svc.GetFunnel(context.Background(), strPtr("s1"), strPtr("p1"), day, day)

	require.NoError(t, err)
	assert.Equal(t, int64(2), f.Views, "p2's view must be excluded when product_id is set")
	assert.Equal(t, int64(1), f.AddToCarts)
	assert.Equal(t, int64(1), f.Purchases)
	assert.Equal(t, 0.5, f.ViewToCart)
	assert.Equal(t, 1.0, f.CartToBuy)
	assert.Equal(t, 0.5, f.ViewToBuy)
}

func TestGetFunnelRequiresAnEntity(t *testing.T) {
	svc := newMetricsService(&fakeEventStore{}, newFakeStatStore(), newFakeCounters(), time.Now())

	_, err := svc.GetFunnel(context.Background(), nil, nil, time.Now(), time.Now())

	assert.True(t, errs.IsValidation(err))
}

func TestReconcileCountersRebuildsThroughYesterday(t *testing.T) {
	now := time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	stats := newFakeStatStore()
	require.NoError(t, stats.UpsertProductDay(context.Background(), &models.ProductDailyStat{
		ProductID: "p1", Date: yesterday.Add(-24 * time.Hour), Views: 10, Purchases: 2, Revenue: 40,
	}))
	require.NoError(t, stats.UpsertProductDay(context.Background(), &models.ProductDailyStat{
		ProductID: "p1", Date: yesterday, Views: 5, Purchases: 1, Revenue: 20,
	}))
	require.NoError(t, stats.UpsertStoreDay(context.Background(), &models.StoreDailyStat{
		StoreID: "s1", Date: yesterday, Views: 15, Purchases: 3, Revenue: 60,
	}))

	counters := newFakeCounters()
	svc := newMetricsService(&fakeEventStore{}, stats, counters, now)

	require.NoError(t, svc.ReconcileCounters(context.Background()))

	p1, err := counters.GetCounters(context.Background(), models.ScopeProduct, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), p1.Views)
	assert.Equal(t, int64(3), p1.Purchases)
	assert.Equal(t, 60.0, p1.Revenue)

	s1, err := counters.GetCounters(context.Background(), models.ScopeStore, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), s1.Views)
	assert.Equal(t, 60.0, s1.Revenue)
}

func TestBuildMetricsGuardsNegativeTotals(t *testing.T) {
	m := buildMetrics(&models.EventTotals{Views: -5, Purchases: -1, Revenue: -100},
		models.ScopeProduct, models.SourceRawEvents)

	assert.Equal(t, int64(0), m.Views)
	assert.Equal(t, int64(0), m.Purchases)
	assert.Equal(t, 0.0, m.Revenue)
	assert.Equal(t, 0.0, m.ConversionRate)
}
