package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/models"
	"analytics-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const insertChunkSize = 1000

// IngestService validates incoming events, enqueues recording jobs, and
// consumes them into the event store
type IngestService struct {
	events EventStore
	queue  JobQueue
	alerts *AlertService
	logger *zap.Logger
}

// NewIngestService creates a new ingest service. alerts may be nil when
// stock alerting is disabled.
func NewIngestService(events EventStore, queue JobQueue, alerts *AlertService) *IngestService {
	return &IngestService{
		events: events,
		queue:  queue,
		alerts: alerts,
		logger: util.GetLogger(),
	}
}

// RecordEvent validates a single event and enqueues a RECORD_SINGLE job.
// Validation failures are surfaced synchronously and never enqueued.
func (s *IngestService) RecordEvent(ctx context.Context, ev models.TrackedEvent) (string, error) {
	if err := ValidateTrackedEvent(ev); err != nil {
		util.EventsRejectedTotal.WithLabelValues(errs.KindOf(err).String()).Inc()
		return "", err
	}

	jobID, err := s.queue.Enqueue(ctx, models.JobTypeRecordSingle, models.RecordSinglePayload{Event: ev})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue event: %w", err)
	}
	return jobID, nil
}

// RecordBatch validates a batch and enqueues a RECORD_BATCH job carrying a
// batch id and aggregate metadata for traceability
func (s *IngestService) RecordBatch(ctx context.Context, events []models.TrackedEvent) (jobID, batchID string, err error) {
	if len(events) == 0 {
		return "", "", errs.New(errs.KindValidation, "empty batch")
	}
	for i, ev := range events {
		if err := ValidateTrackedEvent(ev); err != nil {
			util.EventsRejectedTotal.WithLabelValues(errs.KindOf(err).String()).Inc()
			return "", "", errs.Wrap(errs.KindValidation, fmt.Sprintf("event %d invalid", i), err)
		}
	}

	batchID = uuid.New().String()
	payload := models.RecordBatchPayload{
		BatchID:   batchID,
		BatchSize: len(events),
		CreatedAt: time.Now().UTC(),
		Events:    events,
	}

	jobID, err = s.queue.Enqueue(ctx, models.JobTypeRecordBatch, payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to enqueue batch: %w", err)
	}

	s.logger.Debug("Batch enqueued",
		zap.String("batch_id", batchID),
		zap.Int("batch_size", len(events)))
	return jobID, batchID, nil
}

// ProcessRecordSingle consumes a RECORD_SINGLE job payload
func (s *IngestService) ProcessRecordSingle(ctx context.Context, payload []byte) error {
	var p models.RecordSinglePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return errs.Wrap(errs.KindFatal, "corrupt RECORD_SINGLE payload", err)
	}

	result := s.insertAll(ctx, []models.TrackedEvent{p.Event})
	if result.Failed > 0 {
		return errs.Newf(errs.KindTransient, "event insert failed: %s", result.Errors[0])
	}
	return nil
}

// ProcessRecordBatch consumes a RECORD_BATCH job payload. The structured
// result reports per-chunk outcomes in-band; the returned error is non-nil
// only when every chunk failed, so the queue can retry the whole job.
func (s *IngestService) ProcessRecordBatch(ctx context.Context, payload []byte) (*models.BatchResult, error) {
	var p models.RecordBatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errs.Wrap(errs.KindFatal, "corrupt RECORD_BATCH payload", err)
	}

	result := s.insertAll(ctx, p.Events)
	s.logger.Info("Batch processed",
		zap.String("batch_id", p.BatchID),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed))

	if result.Success == 0 && result.Failed > 0 {
		return result, errs.Newf(errs.KindTransient, "batch %s: all %d events failed", p.BatchID, result.Failed)
	}
	return result, nil
}

// insertAll persists events in chunks. Each chunk is one atomic statement:
// when the statement fails every event in that chunk is reported failed,
// even if some rows could individually have succeeded.
func (s *IngestService) insertAll(ctx context.Context, tracked []models.TrackedEvent) *models.BatchResult {
	result := &models.BatchResult{}

	for start := 0; start < len(tracked); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(tracked) {
			end = len(tracked)
		}
		chunk := tracked[start:end]

		events := make([]models.Event, 0, len(chunk))
		for _, t := range chunk {
			events = append(events, toEvent(t))
		}

		if err := s.events.InsertEvents(ctx, events); err != nil {
			result.Failed += len(chunk)
			for range chunk {
				result.Errors = append(result.Errors, err.Error())
			}
			util.EventInsertFailures.Add(float64(len(chunk)))
			continue
		}

		result.Success += len(chunk)
		for _, t := range chunk {
			util.EventsRecordedTotal.WithLabelValues(t.EventType).Inc()
		}
		s.checkStock(ctx, chunk)
	}

	return result
}

// checkStock runs the low-stock check for products that just sold
func (s *IngestService) checkStock(ctx context.Context, chunk []models.TrackedEvent) {
	if s.alerts == nil {
		return
	}
	seen := make(map[string]bool)
	for _, t := range chunk {
		if t.EventType != models.EventTypePurchase || t.ProductID == nil || seen[*t.ProductID] {
			continue
		}
		seen[*t.ProductID] = true

		storeID := ""
		if t.StoreID != nil {
			storeID = *t.StoreID
		}
		if err := s.alerts.CheckProduct(ctx, *t.ProductID, storeID); err != nil {
			s.logger.Warn("Stock check failed",
				zap.String("product_id", *t.ProductID),
				zap.Error(err))
		}
	}
}

func toEvent(t models.TrackedEvent) models.Event {
	var meta []byte
	if len(t.Meta) > 0 {
		meta, _ = json.Marshal(t.Meta)
	}
	return models.Event{
		ID:        uuid.New().String(),
		StoreID:   t.StoreID,
		ProductID: t.ProductID,
		UserID:    t.UserID,
		EventType: t.EventType,
		Value:     t.Value,
		Metadata:  meta,
		InvokedOn: t.InvokedOn,
		CreatedAt: time.Now().UTC(),
	}
}

// ValidateTrackedEvent enforces the wire schema: a known event type, a valid
// scope, and the entity reference that scope requires. Intake boundaries call
// it per event so one malformed producer cannot poison a whole batch.
func ValidateTrackedEvent(ev models.TrackedEvent) error {
	if !models.ValidEventTypes[ev.EventType] {
		return errs.Newf(errs.KindValidation, "unknown event type %q", ev.EventType)
	}
	switch ev.InvokedOn {
	case models.ScopeStore:
		if ev.StoreID == nil || *ev.StoreID == "" {
			return errs.New(errs.KindValidation, "store-scoped event missing store_id")
		}
	case models.ScopeProduct:
		if ev.ProductID == nil || *ev.ProductID == "" {
			return errs.New(errs.KindValidation, "product-scoped event missing product_id")
		}
	default:
		return errs.Newf(errs.KindValidation, "invalid invoked_on %q", ev.InvokedOn)
	}
	if ev.Value != nil && *ev.Value < 0 {
		return errs.New(errs.KindValidation, "negative event value")
	}
	return nil
}
