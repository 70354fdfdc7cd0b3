package service

import (
	"context"
	"sync"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/models"
	"analytics-service/internal/queue"
)

// fakeEventStore keeps events in memory and folds them on demand
type fakeEventStore struct {
	mu        sync.Mutex
	events    []models.Event
	insertErr error

	insertCalls int
	sumCalls    int
}

func (f *fakeEventStore) InsertEvents(ctx context.Context, events []models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeEventStore) ListEventsForDay(ctx context.Context, day time.Time) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	var out []models.Event
	for _, ev := range f.events {
		if !ev.CreatedAt.Before(start) && ev.CreatedAt.Before(end) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEventStore) SumEventsForEntity(ctx context.Context, scope, entityID string, from, to time.Time) (*models.EventTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sumCalls++

	totals := &models.EventTotals{}
	for _, ev := range f.events {
		var ref *string
		if scope == models.ScopeStore {
			ref = ev.StoreID
		} else {
			ref = ev.ProductID
		}
		if ref == nil || *ref != entityID {
			continue
		}
		if ev.CreatedAt.Before(from) || !ev.CreatedAt.Before(to) {
			continue
		}
		switch ev.EventType {
		case models.EventTypeView:
			totals.Views++
		case models.EventTypeLike:
			totals.Likes++
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
	return totals, nil
}

func (f *fakeEventStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Event
	var deleted int64
	for _, ev := range f.events {
		if ev.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	f.events = kept
	return deleted, nil
}

// fakeStatStore keeps daily stat rows keyed by entity and day
type fakeStatStore struct {
	mu          sync.Mutex
	productRows map[string]map[string]models.ProductDailyStat
	storeRows   map[string]map[string]models.StoreDailyStat

	listProductCalls int
	listStoreCalls   int
}

func newFakeStatStore() *fakeStatStore {
	return &fakeStatStore{
		productRows: make(map[string]map[string]models.ProductDailyStat),
		storeRows:   make(map[string]map[string]models.StoreDailyStat),
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (f *fakeStatStore) UpsertProductDay(ctx context.Context, stat *models.ProductDailyStat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productRows[stat.ProductID] == nil {
		f.productRows[stat.ProductID] = make(map[string]models.ProductDailyStat)
	}
	f.productRows[stat.ProductID][dayKey(stat.Date)] = *stat
	return nil
}

func (f *fakeStatStore) UpsertStoreDay(ctx context.Context, stat *models.StoreDailyStat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeRows[stat.StoreID] == nil {
		f.storeRows[stat.StoreID] = make(map[string]models.StoreDailyStat)
	}
	f.storeRows[stat.StoreID][dayKey(stat.Date)] = *stat
	return nil
}

func (f *fakeStatStore) SumProductRange(ctx context.Context, productID string, from, to time.Time) (*models.EventTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows, found := f.productRows[productID], false
	totals := &models.EventTotals{}
	for _, row := range rows {
		if row.Date.Before(from) || row.Date.After(to) {
			continue
		}
		found = true
		totals.Views += row.Views
		totals.Likes += row.Likes
		totals.AddToCarts += row.AddToCarts
		totals.Purchases += row.Purchases
		totals.Revenue += row.Revenue
	}
	if !found {
		return nil, nil
	}
	return totals, nil
}

func (f *fakeStatStore) SumStoreRange(ctx context.Context, storeID string, from, to time.Time) (*models.EventTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows, found := f.storeRows[storeID], false
	totals := &models.EventTotals{}
	for _, row := range rows {
		if row.Date.Before(from) || row.Date.After(to) {
			continue
		}
		found = true
		totals.Views += row.Views
		totals.Likes += row.Likes
		totals.AddToCarts += row.AddToCarts
		totals.Purchases += row.Purchases
		totals.Checkouts += row.Checkouts
		totals.Revenue += row.Revenue
	}
	if !found {
		return nil, nil
	}
	return totals, nil
}

func (f *fakeStatStore) ListProductRange(ctx context.Context, productID string, from, to time.Time) ([]models.ProductDailyStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listProductCalls++

	var out []models.ProductDailyStat
	for _, row := range f.productRows[productID] {
		if !row.Date.Before(from) && !row.Date.After(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStatStore) ListStoreRange(ctx context.Context, storeID string, from, to time.Time) ([]models.StoreDailyStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listStoreCalls++

	var out []models.StoreDailyStat
	for _, row := range f.storeRows[storeID] {
		if !row.Date.Before(from) && !row.Date.After(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStatStore) TopProductsByConversion(ctx context.Context, storeID string, from, to time.Time, limit int) ([]models.ConversionRanking, error) {
	return nil, nil
}

func (f *fakeStatStore) RevenueTrend(ctx context.Context, storeID *string, from, to time.Time) ([]models.RevenuePoint, error) {
	return nil, nil
}

func (f *fakeStatStore) SumAllProducts(ctx context.Context, until time.Time) ([]models.EntityTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.EntityTotals
	for productID, rows := range f.productRows {
		totals := models.EntityTotals{EntityID: productID}
		for _, row := range rows {
			if row.Date.After(until) {
				continue
			}
			totals.Views += row.Views
			totals.Likes += row.Likes
			totals.Purchases += row.Purchases
			totals.Revenue += row.Revenue
		}
		out = append(out, totals)
	}
	return out, nil
}

func (f *fakeStatStore) SumAllStores(ctx context.Context, until time.Time) ([]models.EntityTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.EntityTotals
	for storeID, rows := range f.storeRows {
		totals := models.EntityTotals{EntityID: storeID}
		for _, row := range rows {
			if row.Date.After(until) {
				continue
			}
			totals.Views += row.Views
			totals.Likes += row.Likes
			totals.Purchases += row.Purchases
			totals.Revenue += row.Revenue
		}
		out = append(out, totals)
	}
	return out, nil
}

// fakeCatalog serves fixed catalog reads with call counters
type fakeCatalog struct {
	mu          sync.Mutex
	priceStats  models.PriceStats
	ratingStats models.RatingStats
	inventory   int64
	lastRestock *time.Time
	productErr  error

	priceCalls     int
	ratingCalls    int
	inventoryCalls int
}

func (f *fakeCatalog) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	if f.productErr != nil {
		return nil, f.productErr
	}
	return &models.Product{ID: id}, nil
}

func (f *fakeCatalog) GetPriceStats(ctx context.Context, productID string) (*models.PriceStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	if f.productErr != nil {
		return nil, f.productErr
	}
	stats := f.priceStats
	return &stats, nil
}

func (f *fakeCatalog) GetRatingStats(ctx context.Context, productID string) (*models.RatingStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratingCalls++
	if f.productErr != nil {
		return nil, f.productErr
	}
	stats := f.ratingStats
	return &stats, nil
}

func (f *fakeCatalog) GetInventoryQty(ctx context.Context, productID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventoryCalls++
	if f.productErr != nil {
		return 0, f.productErr
	}
	return f.inventory, nil
}

func (f *fakeCatalog) GetLastRestockAt(ctx context.Context, productID string) (*time.Time, error) {
	if f.productErr != nil {
		return nil, f.productErr
	}
	return f.lastRestock, nil
}

// fakeCounters is an in-memory Counters implementation
type fakeCounters struct {
	mu   sync.Mutex
	data map[string]*models.RunningCounters
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{data: make(map[string]*models.RunningCounters)}
}

func (f *fakeCounters) GetCounters(ctx context.Context, scope, entityID string) (*models.RunningCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.data[scope+":"+entityID]; ok {
		copied := *c
		return &copied, nil
	}
	return &models.RunningCounters{}, nil
}

func (f *fakeCounters) SetCounters(ctx context.Context, scope, entityID string, counters *models.RunningCounters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *counters
	f.data[scope+":"+entityID] = &copied
	return nil
}

// fakeQueue records enqueued jobs without a database
type fakeQueue struct {
	mu   sync.Mutex
	jobs []fakeJob
}

type fakeJob struct {
	Type    string
	Payload interface{}
}

func (f *fakeQueue) Enqueue(ctx context.Context, jobType string, payload interface{}, opts ...queue.EnqueueOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, fakeJob{Type: jobType, Payload: payload})
	return "job-" + jobType, nil
}

// fakeSink records published stock alerts
type fakeSink struct {
	mu     sync.Mutex
	alerts []*models.StockAlertEvent
}

func (f *fakeSink) PublishStockAlert(ctx context.Context, alert *models.StockAlertEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }

var errStoreDown = errs.New(errs.KindTransient, "storage timeout")
