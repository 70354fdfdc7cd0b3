package models

import "time"

// Behavioral event types
const (
	EventTypeView      = "view"
	EventTypeLike      = "like"
	EventTypeUnlike    = "unlike"
	EventTypeAddToCart = "addToCart"
	EventTypePurchase  = "purchase"
	EventTypeCheckout  = "checkout"
	EventTypeClick     = "click"
	EventTypeCustom    = "custom"
)

// ValidEventTypes is the closed set accepted at ingestion
var ValidEventTypes = map[string]bool{
	EventTypeView:      true,
	EventTypeLike:      true,
	EventTypeUnlike:    true,
	EventTypeAddToCart: true,
	EventTypePurchase:  true,
	EventTypeCheckout:  true,
	EventTypeClick:     true,
	EventTypeCustom:    true,
}

// Job types
const (
	JobTypeRecordSingle   = "RECORD_SINGLE"
	JobTypeRecordBatch    = "RECORD_BATCH"
	JobTypeAggregateDaily = "AGGREGATE_DAILY"
	JobTypeCleanup        = "CLEANUP"
	JobTypeProcessMetrics = "PROCESS_METRICS"
)

// TrackedEvent is the wire schema producers submit, over HTTP or Kafka
type TrackedEvent struct {
	StoreID   *string           `json:"store_id,omitempty"`
	ProductID *string           `json:"product_id,omitempty"`
	UserID    *string           `json:"user_id,omitempty"`
	EventType string            `json:"event_type"`
	Value     *float64          `json:"value,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	InvokedOn string            `json:"invoked_on"`
}

// RecordSinglePayload is the RECORD_SINGLE job payload
type RecordSinglePayload struct {
	Event TrackedEvent `json:"event"`
}

// RecordBatchPayload is the RECORD_BATCH job payload
type RecordBatchPayload struct {
	BatchID   string         `json:"batch_id"`
	BatchSize int            `json:"batch_size"`
	CreatedAt time.Time      `json:"created_at"`
	Events    []TrackedEvent `json:"events"`
}

// AggregateDailyPayload is the AGGREGATE_DAILY job payload
type AggregateDailyPayload struct {
	Date string `json:"date"` // YYYY-MM-DD, UTC day
}

// BatchResult reports the outcome of a batch insert in-band
type BatchResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Alert types published on the stock-alerts topic
const (
	AlertTypeLowStock   = "LOW_STOCK"
	AlertTypeOutOfStock = "OUT_OF_STOCK"
)

// StockAlertEvent is published for the notification service to deliver
type StockAlertEvent struct {
	AlertID   string    `json:"alert_id"`
	AlertType string    `json:"alert_type"`
	ProductID string    `json:"product_id"`
	StoreID   string    `json:"store_id,omitempty"`
	Quantity  int64     `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}
