package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"analytics-service/internal/cache"
	"analytics-service/internal/errs"
	"analytics-service/internal/models"
	"analytics-service/internal/util"

	"go.uber.org/zap"
)

const (
	timeHistoryDays         = 30
	defaultDaysSinceRestock = 365
	batchBuildConcurrency   = 4
)

// FeatureItem is one unit of batch feature building. Items that already
// carry features are skipped; per-item failures set Error and leave the
// batch running.
type FeatureItem struct {
	ProductID string                `json:"product_id"`
	StoreID   string                `json:"store_id,omitempty"`
	ModelType string                `json:"model_type,omitempty"`
	Features  *models.FeatureVector `json:"features,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// FeatureService assembles predictor feature vectors behind a short-TTL
// process-local cache
type FeatureService struct {
	stats   DailyStatStore
	catalog CatalogStore
	cache   *cache.TTLCache[*models.FeatureVector]
	logger  *zap.Logger
	now     func() time.Time
}

// NewFeatureService creates a feature service with the given cache TTL and
// sweep threshold
func NewFeatureService(stats DailyStatStore, catalog CatalogStore, ttl time.Duration, maxEntries int) *FeatureService {
	return &FeatureService{
		stats:   stats,
		catalog: catalog,
		cache:   cache.New[*models.FeatureVector](ttl, maxEntries),
		logger:  util.GetLogger(),
		now:     time.Now,
	}
}

// Build assembles the feature vector for a product, optionally scoped to a
// store. A cache hit within the TTL returns the stored vector without
// touching the underlying reads.
func (s *FeatureService) Build(ctx context.Context, modelType, productID, storeID string) (*models.FeatureVector, error) {
	ctx, span := util.StartSpan(ctx, "FeatureService.Build")
	defer span.End()

	key := cacheKey(modelType, productID, storeID)
	if fv, ok := s.cache.Get(key); ok {
		util.FeatureCacheHits.Inc()
		return fv, nil
	}
	util.FeatureCacheMisses.Inc()

	start := time.Now()
	fv, err := s.compute(ctx, productID, storeID)
	if err != nil {
		return nil, err
	}
	util.FeatureBuildLatency.Observe(time.Since(start).Seconds())

	s.cache.Set(key, fv)
	return fv, nil
}

// BuildMany builds features for a batch, error-isolated: a failed item
// carries an error string and empty features instead of aborting the batch.
// In-flight builds are bounded so large batches cannot fan out unchecked.
func (s *FeatureService) BuildMany(ctx context.Context, items []FeatureItem) []FeatureItem {
	sem := make(chan struct{}, batchBuildConcurrency)
	var wg sync.WaitGroup

	for i := range items {
		if items[i].Features != nil {
			continue
		}
		if items[i].ProductID == "" {
			items[i].Error = "missing product_id"
			items[i].Features = &models.FeatureVector{}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(item *FeatureItem) {
			defer wg.Done()
			defer func() { <-sem }()

			fv, err := s.Build(ctx, item.ModelType, item.ProductID, item.StoreID)
			if err != nil {
				item.Error = err.Error()
				item.Features = &models.FeatureVector{}
				return
			}
			item.Features = fv
		}(&items[i])
	}

	wg.Wait()
	return items
}

// TimeHistory returns the fixed 30-day window for the sequence model:
// zero-filled daily activity with the current inventory quantity reused for
// every historical day. The inventory substitution is a known placeholder,
// not a reconstruction.
func (s *FeatureService) TimeHistory(ctx context.Context, productID string) ([]models.TimeHistoryPoint, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(timeHistoryDays - 1))

	stats, err := s.stats.ListProductRange(ctx, productID, from, today)
	if err != nil {
		return nil, err
	}

	inventoryQty, err := s.catalog.GetInventoryQty(ctx, productID)
	if err != nil {
		if !errs.IsNotFound(err) {
			return nil, err
		}
		inventoryQty = 0
	}

	byDay := make(map[string]models.ProductDailyStat, len(stats))
	for _, st := range stats {
		byDay[st.Date.UTC().Format("2006-01-02")] = st
	}

	history := make([]models.TimeHistoryPoint, 0, timeHistoryDays)
	for d := 0; d < timeHistoryDays; d++ {
		day := from.AddDate(0, 0, d)
		point := models.TimeHistoryPoint{Date: day, InventoryQty: inventoryQty}
		if st, ok := byDay[day.Format("2006-01-02")]; ok {
			point.Purchases = st.Purchases
			point.Views = st.Views
			point.Revenue = st.Revenue
		}
		history = append(history, point)
	}
	return history, nil
}

type windowTotals struct {
	sales      int64
	views      int64
	addToCarts int64
}

// compute fans the independent reads out concurrently and joins them; no
// read depends on another within one build. Unknown products surface a
// NotFound error before the fan-out.
func (s *FeatureService) compute(ctx context.Context, productID, storeID string) (*models.FeatureVector, error) {
	if _, err := s.catalog.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)
	from30 := today.AddDate(0, 0, -(30 - 1))
	from7 := today.AddDate(0, 0, -(7 - 1))

	var (
		wg           sync.WaitGroup
		productStats []models.ProductDailyStat
		storeStats   []models.StoreDailyStat
		priceStats   *models.PriceStats
		ratingStats  *models.RatingStats
		inventoryQty int64
		lastRestock  *time.Time
	)
	var errProduct, errStore, errPrice, errRating, errInventory error

	wg.Add(1)
	go func() {
		defer wg.Done()
		productStats, errProduct = s.stats.ListProductRange(ctx, productID, from30, today)
	}()

	if storeID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			storeStats, errStore = s.stats.ListStoreRange(ctx, storeID, from7, today)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		priceStats, errPrice = s.catalog.GetPriceStats(ctx, productID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ratingStats, errRating = s.catalog.GetRatingStats(ctx, productID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		inventoryQty, errInventory = s.catalog.GetInventoryQty(ctx, productID)
		if errInventory == nil {
			lastRestock, errInventory = s.catalog.GetLastRestockAt(ctx, productID)
		}
	}()

	wg.Wait()

	for _, err := range []error{errProduct, errStore, errPrice, errRating, errInventory} {
		if err != nil {
			return nil, fmt.Errorf("feature read failed for product %s: %w", productID, err)
		}
	}

	w7 := foldWindow(productStats, today.AddDate(0, 0, -(7-1)))
	w14 := foldWindow(productStats, today.AddDate(0, 0, -(14-1)))
	w30 := foldWindow(productStats, from30)

	fv := &models.FeatureVector{
		Sales7d:      w7.sales,
		Sales14d:     w14.sales,
		Sales30d:     w30.sales,
		Views7d:      w7.views,
		Views30d:     w30.views,
		AddToCarts7d: w7.addToCarts,
		InventoryQty: inventoryQty,
	}

	fv.Sales7dPerDay = float64(w7.sales) / 7.0
	fv.Sales30dPerDay = float64(w30.sales) / 30.0
	if w30.sales > 0 {
		fv.SalesRatio7To30 = float64(w7.sales) / float64(w30.sales)
	}
	if w7.views > 0 {
		fv.ViewToPurchase7d = float64(w7.sales) / float64(w7.views)
	}

	if priceStats != nil {
		fv.MinPrice = priceStats.Min
		fv.AvgPrice = priceStats.Avg
		fv.MaxPrice = priceStats.Max
	}
	if ratingStats != nil {
		fv.AvgRating = ratingStats.Average
		fv.RatingCount = ratingStats.Count
	}

	fv.DaysSinceRestock = defaultDaysSinceRestock
	if lastRestock != nil && !lastRestock.After(now) {
		fv.DaysSinceRestock = int64(now.Sub(lastRestock.UTC()).Hours() / 24)
	}

	for _, st := range storeStats {
		fv.StoreViews7d += st.Views
		fv.StorePurchases7d += st.Purchases
	}

	// Predictor encoding: Monday is 0, Sunday is 6
	weekday := now.Weekday()
	fv.DayOfWeek = (int(weekday) + 6) % 7
	if weekday == time.Saturday || weekday == time.Sunday {
		fv.IsWeekend = 1
	}

	normalize(fv)
	return fv, nil
}

func foldWindow(stats []models.ProductDailyStat, from time.Time) windowTotals {
	var w windowTotals
	for _, st := range stats {
		if st.Date.Before(from) {
			continue
		}
		w.sales += st.Purchases
		w.views += st.Views
		w.addToCarts += st.AddToCarts
	}
	return w
}

// normalize replaces NaN or infinite derived values with zero so the
// predictor always receives finite numbers
func normalize(fv *models.FeatureVector) {
	for _, f := range []*float64{
		&fv.Sales7dPerDay, &fv.Sales30dPerDay, &fv.SalesRatio7To30,
		&fv.ViewToPurchase7d, &fv.AvgPrice, &fv.MinPrice, &fv.MaxPrice,
		&fv.AvgRating,
	} {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
}

func cacheKey(modelType, productID, storeID string) string {
	if modelType == "" {
		modelType = "default"
	}
	if storeID == "" {
		storeID = "none"
	}
	return fmt.Sprintf("%s:%s:%s", modelType, productID, storeID)
}
