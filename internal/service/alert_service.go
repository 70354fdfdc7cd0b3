package service

import (
	"context"
	"time"

	"analytics-service/internal/cache"
	"analytics-service/internal/errs"
	"analytics-service/internal/models"
	"analytics-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const cooldownMaxEntries = 1000

// AlertService publishes low-stock and out-of-stock alerts, suppressing
// duplicates per (product, alert type) within the cooldown window. The
// cooldown state is process-local: each instance suppresses independently.
type AlertService struct {
	catalog   CatalogStore
	sink      AlertSink
	cooldown  *cache.Cooldown
	threshold int64
	logger    *zap.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(catalog CatalogStore, sink AlertSink, threshold int64, cooldownWindow time.Duration) *AlertService {
	return &AlertService{
		catalog:   catalog,
		sink:      sink,
		cooldown:  cache.NewCooldown(cooldownWindow, cooldownMaxEntries),
		threshold: threshold,
		logger:    util.GetLogger(),
	}
}

// CheckProduct inspects the product's current inventory and publishes an
// alert when stock is out or below the threshold. Unknown products are not
// an error here; they simply produce no alert.
func (s *AlertService) CheckProduct(ctx context.Context, productID, storeID string) error {
	qty, err := s.catalog.GetInventoryQty(ctx, productID)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil
		}
		return err
	}

	var alertType string
	switch {
	case qty <= 0:
		alertType = models.AlertTypeOutOfStock
	case qty < s.threshold:
		alertType = models.AlertTypeLowStock
	default:
		return nil
	}

	if !s.cooldown.Allow(productID, alertType) {
		util.AlertsSuppressedTotal.Inc()
		s.logger.Debug("Alert suppressed by cooldown",
			zap.String("product_id", productID),
			zap.String("alert_type", alertType))
		return nil
	}

	alert := &models.StockAlertEvent{
		AlertID:   uuid.New().String(),
		AlertType: alertType,
		ProductID: productID,
		StoreID:   storeID,
		Quantity:  qty,
		Timestamp: time.Now().UTC(),
	}

	if err := s.sink.PublishStockAlert(ctx, alert); err != nil {
		return errs.Wrap(errs.KindTransient, "publish stock alert", err)
	}

	util.AlertsPublishedTotal.WithLabelValues(alertType).Inc()
	s.logger.Info("Stock alert published",
		zap.String("product_id", productID),
		zap.String("alert_type", alertType),
		zap.Int64("quantity", qty))
	return nil
}
