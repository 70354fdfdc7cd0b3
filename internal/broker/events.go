package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"analytics-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// AlertPublisher publishes stock alerts for the notification service
type AlertPublisher struct {
	producer *Producer
}

// NewAlertPublisher creates a new alert publisher
func NewAlertPublisher(producer *Producer) *AlertPublisher {
	return &AlertPublisher{producer: producer}
}

// PublishStockAlert publishes a low-stock or out-of-stock alert, keyed by
// product so alerts for one product stay ordered
func (ap *AlertPublisher) PublishStockAlert(ctx context.Context, alert *models.StockAlertEvent) error {
	key := fmt.Sprintf("product-%s", alert.ProductID)
	return ap.producer.Publish(ctx, key, alert)
}

// DecodeTrackedEvent parses one tracking-topic message into the wire schema
func DecodeTrackedEvent(msg kafka.Message) (*models.TrackedEvent, error) {
	var ev models.TrackedEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tracked event: %w", err)
	}
	return &ev, nil
}
