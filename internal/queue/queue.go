package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"analytics-service/internal/errs"
	"analytics-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Job states
const (
	StateQueued    = "queued"
	StateActive    = "active"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Job is one unit of asynchronous work. State transitions are driven only by
// the queue runtime and the consumer outcome.
type Job struct {
	ID          string         `db:"id" json:"id"`
	Type        string         `db:"type" json:"type"`
	Payload     []byte         `db:"payload" json:"payload"`
	Priority    int            `db:"priority" json:"priority"`
	Attempts    int            `db:"attempts" json:"attempts"`
	MaxAttempts int            `db:"max_attempts" json:"max_attempts"`
	State       string         `db:"state" json:"state"`
	RunAt       time.Time      `db:"run_at" json:"run_at"`
	LastError   sql.NullString `db:"last_error" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Options controls queue-wide defaults
type Options struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Queue is a Postgres-backed durable job queue with at-least-once delivery.
// Dequeue claims jobs with FOR UPDATE SKIP LOCKED so multiple worker
// processes can poll the same table safely.
type Queue struct {
	db     *sqlx.DB
	opts   Options
	logger *zap.Logger
}

// New creates a queue over an existing database handle
func New(db *sqlx.DB, opts Options) *Queue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 5 * time.Second
	}
	return &Queue{db: db, opts: opts, logger: util.GetLogger()}
}

// EnqueueOption customizes a single job
type EnqueueOption func(*Job)

// WithPriority sets the job priority; higher runs first
func WithPriority(p int) EnqueueOption {
	return func(j *Job) { j.Priority = p }
}

// WithDelay defers the first attempt
func WithDelay(d time.Duration) EnqueueOption {
	return func(j *Job) { j.RunAt = time.Now().UTC().Add(d) }
}

// WithMaxAttempts overrides the queue default for this job
func WithMaxAttempts(n int) EnqueueOption {
	return func(j *Job) { j.MaxAttempts = n }
}

// Enqueue persists a new job and returns its id
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload interface{}, opts ...EnqueueOption) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errs.Wrap(errs.KindValidation, "marshal job payload", err)
	}

	job := &Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Payload:     body,
		MaxAttempts: q.opts.MaxAttempts,
		RunAt:       time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(job)
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, payload, priority, attempts, max_attempts, state, run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, NOW(), NOW())`,
		job.ID, job.Type, job.Payload, job.Priority, job.MaxAttempts, StateQueued, job.RunAt)
	if err != nil {
		return "", errs.Wrap(errs.KindTransient, "insert job", err)
	}

	util.JobsEnqueuedTotal.WithLabelValues(jobType).Inc()
	q.logger.Debug("Job enqueued",
		zap.String("job_id", job.ID),
		zap.String("type", jobType),
		zap.Int("priority", job.Priority))
	return job.ID, nil
}

// GetStatus returns the job row, or a NotFound error when no such job exists
func (q *Queue) GetStatus(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	err := q.db.GetContext(ctx, &job, "SELECT * FROM jobs WHERE id = $1", jobID)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.KindNotFound, "job %s not found", jobID)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "get job", err)
	}
	return &job, nil
}

// Remove deletes a job regardless of state
func (q *Queue) Remove(ctx context.Context, jobID string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = $1", jobID)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "delete job", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Newf(errs.KindNotFound, "job %s not found", jobID)
	}
	return nil
}

// RetryFailed resets failed jobs back to queued. With an empty jobType every
// failed job is retried.
func (q *Queue) RetryFailed(ctx context.Context, jobType string) (int64, error) {
	query := `UPDATE jobs SET state = $1, attempts = 0, run_at = NOW(), last_error = NULL, updated_at = NOW() WHERE state = $2`
	args := []interface{}{StateQueued, StateFailed}
	if jobType != "" {
		query += " AND type = $3"
		args = append(args, jobType)
	}

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, "retry failed jobs", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// PurgeCompleted removes terminal jobs older than the retention window.
// Advisory housekeeping only: losing a completed row is harmless.
func (q *Queue) PurgeCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE state IN ($1, $2) AND updated_at < $3",
		StateCompleted, StateFailed, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, "purge jobs", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Dequeue claims the next runnable job, marking it active and bumping its
// attempt counter. Returns nil when no job is due.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	var job Job
	err := q.db.GetContext(ctx, &job, `
		UPDATE jobs SET state = $1, attempts = attempts + 1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM jobs
			WHERE state = $2 AND run_at <= NOW()
			ORDER BY priority DESC, run_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		StateActive, StateQueued)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "dequeue job", err)
	}
	return &job, nil
}

// Complete marks an active job as done
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET state = $1, updated_at = NOW() WHERE id = $2",
		StateCompleted, jobID)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "complete job", err)
	}
	return nil
}

// Fail records a consumer failure. Retryable failures with attempts left are
// rescheduled with exponential backoff; everything else lands in the failed
// state for manual or bulk retry — never silently dropped.
func (q *Queue) Fail(ctx context.Context, job *Job, cause error) error {
	if errs.Retryable(cause) && job.Attempts < job.MaxAttempts {
		runAt := time.Now().UTC().Add(Backoff(q.opts.BaseBackoff, job.Attempts))
		_, err := q.db.ExecContext(ctx,
			"UPDATE jobs SET state = $1, run_at = $2, last_error = $3, updated_at = NOW() WHERE id = $4",
			StateQueued, runAt, cause.Error(), job.ID)
		if err != nil {
			return errs.Wrap(errs.KindTransient, "reschedule job", err)
		}
		q.logger.Warn("Job rescheduled",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempt", job.Attempts),
			zap.Time("run_at", runAt),
			zap.Error(cause))
		return nil
	}

	_, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET state = $1, last_error = $2, updated_at = NOW() WHERE id = $3",
		StateFailed, cause.Error(), job.ID)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "fail job", err)
	}
	q.logger.Error("Job failed permanently",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempts),
		zap.Error(cause))
	return nil
}

// Backoff returns the delay before retry number attempt+1: base doubled for
// every completed attempt
func Backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Schema is the DDL for the jobs table, applied by migrations
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           UUID PRIMARY KEY,
	type         TEXT NOT NULL,
	payload      JSONB NOT NULL,
	priority     INT NOT NULL DEFAULT 0,
	attempts     INT NOT NULL DEFAULT 0,
	max_attempts INT NOT NULL DEFAULT 3,
	state        TEXT NOT NULL DEFAULT 'queued',
	run_at       TIMESTAMPTZ NOT NULL,
	last_error   TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_jobs_ready ON jobs (state, run_at, priority);
`
