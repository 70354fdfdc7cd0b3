package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"analytics-service/config"
	"analytics-service/internal/api"
	"analytics-service/internal/broker"
	"analytics-service/internal/models"
	"analytics-service/internal/queue"
	"analytics-service/internal/redisclient"
	"analytics-service/internal/service"
	"analytics-service/internal/store"
	"analytics-service/internal/util"
	"analytics-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting analytics service")

	tp, err := util.InitTracer("analytics-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	alertProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()
	alertPublisher := broker.NewAlertPublisher(alertProducer)
	log.Println("Kafka producer initialized")

	jobQueue := queue.New(db.GetDB(), queue.Options{
		MaxAttempts: cfg.Queue.MaxAttempts,
		BaseBackoff: cfg.Queue.BaseBackoff,
	})

	alertService := service.NewAlertService(db, alertPublisher,
		cfg.Alerts.LowStockThreshold,
		time.Duration(cfg.Alerts.CooldownMinutes)*time.Minute)
	ingestService := service.NewIngestService(db, jobQueue, alertService)
	aggregationService := service.NewAggregationService(db, db)
	metricsService := service.NewMetricsService(db, db, redisClient)
	featureService := service.NewFeatureService(db, db,
		cfg.Features.CacheTTL, cfg.Features.CacheMaxEntries)
	jobAdmin := service.NewJobAdmin(jobQueue)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	queueWorker := worker.NewQueueWorker(jobQueue, cfg.Queue.Workers, cfg.Queue.PollInterval)
	queueWorker.RegisterCoreHandlers(
		ingestService, aggregationService, metricsService, db,
		time.Duration(cfg.Retention.EventRetentionDays)*24*time.Hour,
		time.Duration(cfg.Retention.JobRetentionHours)*time.Hour,
	)
	go queueWorker.Start(workerCtx)

	trackingConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicTracking, cfg.Kafka.ConsumerGroup)
	trackingWorker := worker.NewTrackingWorker(trackingConsumer, ingestService, 100)
	go func() {
		if err := trackingWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Tracking worker error: %v", err)
		}
	}()

	scheduler := queue.NewScheduler()
	scheduler.Register("daily-aggregation", time.Hour, func(ctx context.Context) error {
		yesterday := time.Now().UTC().Truncate(24 * time.Hour).Add(-24 * time.Hour)
		date := yesterday.Format("2006-01-02")

		// Dedup the hourly enqueue across instances; the fold itself is
		// idempotent, so a lost lock only skips a redundant job
		acquired, err := redisClient.AcquireLock(ctx, "aggregate-daily:"+date, 2*time.Hour)
		if err != nil {
			return err
		}
		if !acquired {
			return nil
		}

		_, err = jobQueue.Enqueue(ctx, models.JobTypeAggregateDaily,
			models.AggregateDailyPayload{Date: date},
			queue.WithPriority(10))
		if err != nil {
			_ = redisClient.ReleaseLock(ctx, "aggregate-daily:"+date)
			return err
		}
		return nil
	})
	scheduler.Register("retention-cleanup", 6*time.Hour, func(ctx context.Context) error {
		_, err := jobQueue.Enqueue(ctx, models.JobTypeCleanup, struct{}{}, queue.WithPriority(5))
		return err
	})
	scheduler.Register("metrics-reconcile", 2*time.Hour, func(ctx context.Context) error {
		_, err := jobQueue.Enqueue(ctx, models.JobTypeProcessMetrics, struct{}{}, queue.WithPriority(5))
		return err
	})
	scheduler.Start(workerCtx)
	defer scheduler.Stop()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(ingestService, metricsService, featureService, jobAdmin)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	workerCancel()
	_ = trackingWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
