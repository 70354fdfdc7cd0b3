package api

import (
	"net/http"
	"strconv"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/models"
	"analytics-service/internal/service"
	"analytics-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers. The routing layer is a thin collaborator
// surface over the services; all policy lives below it.
type Handler struct {
	ingest   *service.IngestService
	metrics  *service.MetricsService
	features *service.FeatureService
	jobs     *service.JobAdmin
}

// NewHandler creates a new HTTP handler
func NewHandler(ingest *service.IngestService, metrics *service.MetricsService, features *service.FeatureService, jobs *service.JobAdmin) *Handler {
	return &Handler{
		ingest:   ingest,
		metrics:  metrics,
		features: features,
		jobs:     jobs,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/events", h.recordEvent)
		v1.POST("/events/batch", h.recordBatch)

		v1.GET("/stats/quick/:scope/:id", h.quickStats)
		v1.GET("/metrics/conversion/:scope/:id", h.resolveConversion)
		v1.GET("/metrics/top", h.topByConversion)
		v1.GET("/metrics/revenue-trends", h.revenueTrends)
		v1.GET("/metrics/funnel", h.funnel)

		v1.GET("/features/:productId", h.buildFeatures)
		v1.POST("/features/batch", h.buildFeaturesBatch)
		v1.GET("/features/:productId/history", h.timeHistory)

		v1.GET("/jobs/:id", h.jobStatus)
		v1.DELETE("/jobs/:id", h.removeJob)
		v1.POST("/jobs/retry-failed", h.retryFailed)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// recordEvent accepts a single behavioral event
func (h *Handler) recordEvent(c *gin.Context) {
	var ev models.TrackedEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	jobID, err := h.ingest.RecordEvent(c.Request.Context(), ev)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// recordBatch accepts a batch of behavioral events
func (h *Handler) recordBatch(c *gin.Context) {
	var req struct {
		Events []models.TrackedEvent `json:"events" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	jobID, batchID, err := h.ingest.RecordBatch(c.Request.Context(), req.Events)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     jobID,
		"batch_id":   batchID,
		"batch_size": len(req.Events),
	})
}

// quickStats serves the hybrid-cached summary figures
func (h *Handler) quickStats(c *gin.Context) {
	m, err := h.metrics.GetQuickStats(c.Request.Context(), c.Param("id"), c.Param("scope"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// resolveConversion serves conversion metrics over a date range
func (h *Handler) resolveConversion(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	m, err := h.metrics.ResolveConversion(c.Request.Context(), c.Param("id"), c.Param("scope"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// topByConversion serves a store's product ranking
func (h *Handler) topByConversion(c *gin.Context) {
	storeID := c.Query("store_id")
	if storeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
		return
	}
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rows, err := h.metrics.GetTopByConversion(c.Request.Context(), storeID, from, to, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": rows})
}

// revenueTrends serves the per-day revenue series
func (h *Handler) revenueTrends(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	var storeID *string
	if s := c.Query("store_id"); s != "" {
		storeID = &s
	}

	points, err := h.metrics.GetRevenueTrends(c.Request.Context(), storeID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trends": points})
}

// funnel serves the view/cart/checkout/purchase funnel
func (h *Handler) funnel(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	var storeID, productID *string
	if s := c.Query("store_id"); s != "" {
		storeID = &s
	}
	if p := c.Query("product_id"); p != "" {
		productID = &p
	}

	f, err := h.metrics.GetFunnel(c.Request.Context(), storeID, productID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// buildFeatures serves a product's feature vector
func (h *Handler) buildFeatures(c *gin.Context) {
	fv, err := h.features.Build(
		c.Request.Context(),
		c.DefaultQuery("model_type", "default"),
		c.Param("productId"),
		c.Query("store_id"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fv)
}

// buildFeaturesBatch serves best-effort batch feature building
func (h *Handler) buildFeaturesBatch(c *gin.Context) {
	var req struct {
		Items []service.FeatureItem `json:"items" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	items := h.features.BuildMany(c.Request.Context(), req.Items)
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// timeHistory serves the 30-day sequence-model window
func (h *Handler) timeHistory(c *gin.Context) {
	history, err := h.features.TimeHistory(c.Request.Context(), c.Param("productId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// jobStatus serves a job's state
func (h *Handler) jobStatus(c *gin.Context) {
	job, err := h.jobs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// removeJob deletes a job
func (h *Handler) removeJob(c *gin.Context) {
	if err := h.jobs.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// retryFailed requeues failed jobs, optionally filtered by type
func (h *Handler) retryFailed(c *gin.Context) {
	count, err := h.jobs.RetryFailed(c.Request.Context(), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"retried": count})
}

// parseRange reads from/to query params as YYYY-MM-DD
func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing from date"})
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing to date"})
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not precede from"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// respondError maps error kinds to HTTP statuses
func respondError(c *gin.Context, err error) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errs.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
