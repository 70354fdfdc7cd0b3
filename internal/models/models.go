package models

import "time"

// Event scope: which entity kind an event was invoked on
const (
	ScopeStore   = "store"
	ScopeProduct = "product"
)

// Event represents an immutable behavioral event
type Event struct {
	ID        string    `db:"id" json:"id"`
	StoreID   *string   `db:"store_id" json:"store_id,omitempty"`
	ProductID *string   `db:"product_id" json:"product_id,omitempty"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	EventType string    `db:"event_type" json:"event_type"`
	Value     *float64  `db:"value" json:"value,omitempty"`
	Metadata  []byte    `db:"metadata" json:"metadata,omitempty"`
	InvokedOn string    `db:"invoked_on" json:"invoked_on"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProductDailyStat is one aggregate row per product per UTC day
type ProductDailyStat struct {
	ProductID      string    `db:"product_id" json:"product_id"`
	Date           time.Time `db:"date" json:"date"`
	Views          int64     `db:"views" json:"views"`
	Likes          int64     `db:"likes" json:"likes"`
	AddToCarts     int64     `db:"add_to_carts" json:"add_to_carts"`
	Purchases      int64     `db:"purchases" json:"purchases"`
	Revenue        float64   `db:"revenue" json:"revenue"`
	ConversionRate float64   `db:"conversion_rate" json:"conversion_rate"`
}

// StoreDailyStat is one aggregate row per store per UTC day
type StoreDailyStat struct {
	StoreID        string    `db:"store_id" json:"store_id"`
	Date           time.Time `db:"date" json:"date"`
	Views          int64     `db:"views" json:"views"`
	Likes          int64     `db:"likes" json:"likes"`
	AddToCarts     int64     `db:"add_to_carts" json:"add_to_carts"`
	Purchases      int64     `db:"purchases" json:"purchases"`
	Checkouts      int64     `db:"checkouts" json:"checkouts"`
	Revenue        float64   `db:"revenue" json:"revenue"`
	ConversionRate float64   `db:"conversion_rate" json:"conversion_rate"`
}

// Metric sources
const (
	SourceAggregatedStats = "aggregatedStats"
	SourceRawEvents       = "rawEvents"
	SourceHybridCached    = "hybridCached"
)

// ConversionMetrics is a derived metrics object, never persisted
type ConversionMetrics struct {
	Views          int64   `json:"views"`
	Purchases      int64   `json:"purchases"`
	AddToCarts     int64   `json:"add_to_carts"`
	Checkouts      int64   `json:"checkouts,omitempty"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversion_rate"`
	AddToCartRate  float64 `json:"add_to_cart_rate"`
	CheckoutRate   float64 `json:"checkout_rate,omitempty"`
	Source         string  `json:"source"`
}

// FeatureVector is the fixed-shape numeric input for the predictor.
// Field names mirror the columns the trained models were fitted on.
type FeatureVector struct {
	Sales7d          int64   `json:"sales7d"`
	Sales14d         int64   `json:"sales14d"`
	Sales30d         int64   `json:"sales30d"`
	Sales7dPerDay    float64 `json:"sales7dPerDay"`
	Sales30dPerDay   float64 `json:"sales30dPerDay"`
	SalesRatio7To30  float64 `json:"salesRatio7To30"`
	Views7d          int64   `json:"views7d"`
	Views30d         int64   `json:"views30d"`
	AddToCarts7d     int64   `json:"addToCarts7d"`
	ViewToPurchase7d float64 `json:"viewToPurchase7d"`
	AvgPrice         float64 `json:"avgPrice"`
	MinPrice         float64 `json:"minPrice"`
	MaxPrice         float64 `json:"maxPrice"`
	AvgRating        float64 `json:"avgRating"`
	RatingCount      int64   `json:"ratingCount"`
	InventoryQty     int64   `json:"inventoryQty"`
	DaysSinceRestock int64   `json:"daysSinceRestock"`
	StoreViews7d     int64   `json:"storeViews7d"`
	StorePurchases7d int64   `json:"storePurchases7d"`
	DayOfWeek        int     `json:"dayOfWeek"`
	IsWeekend        int     `json:"isWeekend"`
}

// TimeHistoryPoint is one day of the 30-day sequence-model window
type TimeHistoryPoint struct {
	Date         time.Time `json:"date"`
	Purchases    int64     `json:"purchases"`
	Views        int64     `json:"views"`
	Revenue      float64   `json:"revenue"`
	InventoryQty int64     `json:"inventory_qty"`
}

// Product represents a catalog product
type Product struct {
	ID        string    `db:"id" json:"id"`
	StoreID   string    `db:"store_id" json:"store_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Variant represents a purchasable product variant with its own price
type Variant struct {
	ID        string  `db:"id" json:"id"`
	ProductID string  `db:"product_id" json:"product_id"`
	SKU       string  `db:"sku" json:"sku"`
	Price     float64 `db:"price" json:"price"`
}

// Inventory represents current stock for a variant
type Inventory struct {
	VariantID string    `db:"variant_id" json:"variant_id"`
	Quantity  int64     `db:"quantity" json:"quantity"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PriceStats summarizes variant prices for a product
type PriceStats struct {
	Min float64 `db:"min_price"`
	Avg float64 `db:"avg_price"`
	Max float64 `db:"max_price"`
}

// RatingStats summarizes reviews for a product
type RatingStats struct {
	Average float64 `db:"avg_rating"`
	Count   int64   `db:"rating_count"`
}

// EventTotals are raw-event counts and sums folded over a range
type EventTotals struct {
	Views      int64   `db:"views"`
	Likes      int64   `db:"likes"`
	AddToCarts int64   `db:"add_to_carts"`
	Purchases  int64   `db:"purchases"`
	Checkouts  int64   `db:"checkouts"`
	Revenue    float64 `db:"revenue"`
}

// EntityTotals pairs an entity with its summed totals, for the
// running-counter reconciliation job
type EntityTotals struct {
	EntityID  string  `db:"entity_id"`
	Views     int64   `db:"views"`
	Likes     int64   `db:"likes"`
	Purchases int64   `db:"purchases"`
	Revenue   float64 `db:"revenue"`
}

// RunningCounters are the denormalized all-time totals kept in Redis,
// read by the hybrid quick-stats path
type RunningCounters struct {
	Views     int64   `json:"views"`
	Likes     int64   `json:"likes"`
	Purchases int64   `json:"purchases"`
	Revenue   float64 `json:"revenue"`
}

// ConversionRanking is one row of a top-by-conversion listing
type ConversionRanking struct {
	ProductID      string  `db:"product_id" json:"product_id"`
	Views          int64   `db:"views" json:"views"`
	Purchases      int64   `db:"purchases" json:"purchases"`
	Revenue        float64 `db:"revenue" json:"revenue"`
	ConversionRate float64 `json:"conversion_rate"`
}

// RevenuePoint is one day of a revenue trend series
type RevenuePoint struct {
	Date      time.Time `db:"date" json:"date"`
	Revenue   float64   `db:"revenue" json:"revenue"`
	Purchases int64     `db:"purchases" json:"purchases"`
}

// Funnel captures stage counts and stage-to-stage rates over a range
type Funnel struct {
	Views      int64   `json:"views"`
	AddToCarts int64   `json:"add_to_carts"`
	Checkouts  int64   `json:"checkouts"`
	Purchases  int64   `json:"purchases"`
	ViewToCart float64 `json:"view_to_cart"`
	CartToBuy  float64 `json:"cart_to_buy"`
	ViewToBuy  float64 `json:"view_to_buy"`
}
