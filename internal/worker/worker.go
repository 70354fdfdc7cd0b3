package worker

import (
	"context"
	"time"

	"analytics-service/internal/broker"
	"analytics-service/internal/errs"
	"analytics-service/internal/models"
	"analytics-service/internal/queue"
	"analytics-service/internal/service"
	"analytics-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// JobHandler consumes one claimed job
type JobHandler func(ctx context.Context, job *queue.Job) error

// QueueWorker runs a pool of goroutines that poll the durable queue and
// dispatch jobs by type. Handlers are injected at construction; there is no
// dynamic lookup at consume time.
type QueueWorker struct {
	queue        *queue.Queue
	handlers     map[string]JobHandler
	workers      int
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewQueueWorker creates a queue worker pool
func NewQueueWorker(q *queue.Queue, workers int, pollInterval time.Duration) *QueueWorker {
	if workers <= 0 {
		workers = 1
	}
	return &QueueWorker{
		queue:        q,
		handlers:     make(map[string]JobHandler),
		workers:      workers,
		pollInterval: pollInterval,
		logger:       util.GetLogger(),
	}
}

// Register binds a job type to its handler. Must be called before Start.
func (w *QueueWorker) Register(jobType string, handler JobHandler) {
	w.handlers[jobType] = handler
}

// Start launches the worker pool and blocks until the context is cancelled
func (w *QueueWorker) Start(ctx context.Context) {
	w.logger.Info("Starting queue workers", zap.Int("workers", w.workers))
	for i := 0; i < w.workers; i++ {
		go w.loop(ctx)
	}
	<-ctx.Done()
	w.logger.Info("Queue workers stopping")
}

func (w *QueueWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain everything due before sleeping again
			for {
				job, err := w.queue.Dequeue(ctx)
				if err != nil {
					w.logger.Error("Dequeue failed", zap.Error(err))
					break
				}
				if job == nil {
					break
				}
				w.process(ctx, job)
			}
		}
	}
}

func (w *QueueWorker) process(ctx context.Context, job *queue.Job) {
	start := time.Now()

	handler, ok := w.handlers[job.Type]
	if !ok {
		err := errs.Newf(errs.KindFatal, "no handler for job type %s", job.Type)
		_ = w.queue.Fail(ctx, job, err)
		util.JobsProcessedTotal.WithLabelValues(job.Type, "failed").Inc()
		return
	}

	if err := handler(ctx, job); err != nil {
		_ = w.queue.Fail(ctx, job, err)
		util.JobsProcessedTotal.WithLabelValues(job.Type, "failed").Inc()
		return
	}

	if err := w.queue.Complete(ctx, job.ID); err != nil {
		w.logger.Error("Failed to mark job completed",
			zap.String("job_id", job.ID), zap.Error(err))
	}
	util.JobsProcessedTotal.WithLabelValues(job.Type, "completed").Inc()
	util.JobProcessingLatency.WithLabelValues(job.Type).Observe(time.Since(start).Seconds())
}

// RegisterCoreHandlers wires the standard job types to their consumers
func (w *QueueWorker) RegisterCoreHandlers(
	ingest *service.IngestService,
	aggregation *service.AggregationService,
	metrics *service.MetricsService,
	events service.EventStore,
	eventRetention time.Duration,
	jobRetention time.Duration,
) {
	w.Register(models.JobTypeRecordSingle, func(ctx context.Context, job *queue.Job) error {
		return ingest.ProcessRecordSingle(ctx, job.Payload)
	})

	w.Register(models.JobTypeRecordBatch, func(ctx context.Context, job *queue.Job) error {
		_, err := ingest.ProcessRecordBatch(ctx, job.Payload)
		return err
	})

	w.Register(models.JobTypeAggregateDaily, func(ctx context.Context, job *queue.Job) error {
		return aggregation.ProcessAggregateJob(ctx, job.Payload)
	})

	w.Register(models.JobTypeProcessMetrics, func(ctx context.Context, job *queue.Job) error {
		return metrics.ReconcileCounters(ctx)
	})

	w.Register(models.JobTypeCleanup, func(ctx context.Context, job *queue.Job) error {
		cutoff := time.Now().UTC().Add(-eventRetention)
		deleted, err := events.DeleteEventsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		purged, err := w.queue.PurgeCompleted(ctx, jobRetention)
		if err != nil {
			return err
		}
		w.logger.Info("Cleanup completed",
			zap.Int64("events_deleted", deleted),
			zap.Int64("jobs_purged", purged))
		return nil
	})
}

// TrackingWorker consumes raw tracked events from the tracking topic and
// feeds them through the ingestion path in batches
type TrackingWorker struct {
	consumer  *broker.Consumer
	ingest    *service.IngestService
	batchSize int
	logger    *zap.Logger
}

// NewTrackingWorker creates a tracking worker
func NewTrackingWorker(consumer *broker.Consumer, ingest *service.IngestService, batchSize int) *TrackingWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &TrackingWorker{
		consumer:  consumer,
		ingest:    ingest,
		batchSize: batchSize,
		logger:    util.GetLogger(),
	}
}

// Start consumes tracking messages until the context is cancelled. Messages
// that fail to decode or validate are committed and dropped individually;
// enqueue failures leave the batch uncommitted for redelivery.
func (tw *TrackingWorker) Start(ctx context.Context) error {
	tw.logger.Info("Starting tracking worker")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := tw.consumer.ConsumeBatch(ctx, tw.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			tw.logger.Error("Failed to fetch tracking messages", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		events := tw.collectEvents(msgs)

		if len(events) > 0 {
			if _, _, err := tw.ingest.RecordBatch(ctx, events); err != nil {
				tw.logger.Error("Failed to enqueue tracking batch", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
		}

		if err := tw.commit(ctx, msgs); err != nil {
			tw.logger.Error("Failed to commit tracking messages", zap.Error(err))
		}
	}
}

// collectEvents decodes and validates tracking messages per message, so one
// malformed event drops alone instead of poisoning the rest of the batch
func (tw *TrackingWorker) collectEvents(msgs []kafka.Message) []models.TrackedEvent {
	events := make([]models.TrackedEvent, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := broker.DecodeTrackedEvent(msg)
		if err != nil {
			tw.logger.Warn("Dropping undecodable tracking message", zap.Error(err))
			continue
		}
		if err := service.ValidateTrackedEvent(*ev); err != nil {
			util.EventsRejectedTotal.WithLabelValues(errs.KindOf(err).String()).Inc()
			tw.logger.Warn("Dropping invalid tracking message", zap.Error(err))
			continue
		}
		events = append(events, *ev)
	}
	return events
}

func (tw *TrackingWorker) commit(ctx context.Context, msgs []kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return tw.consumer.CommitMessages(ctx, msgs...)
}

// Stop closes the underlying consumer
func (tw *TrackingWorker) Stop() error {
	tw.logger.Info("Stopping tracking worker")
	return tw.consumer.Close()
}
