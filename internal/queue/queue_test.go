package queue

import (
	"context"
	"testing"
	"time"

	"analytics-service/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesPerAttempt(t *testing.T) {
	base := 5 * time.Second

	assert.Equal(t, 5*time.Second, Backoff(base, 1))
	assert.Equal(t, 10*time.Second, Backoff(base, 2))
	assert.Equal(t, 20*time.Second, Backoff(base, 3))
	assert.Equal(t, 40*time.Second, Backoff(base, 4))
}

func TestBackoffHandlesZeroAttempt(t *testing.T) {
	base := time.Second
	assert.Equal(t, base, Backoff(base, 0))
}

func TestEnqueueOptionDefaults(t *testing.T) {
	job := &Job{MaxAttempts: 3, RunAt: time.Now().UTC()}

	WithPriority(10)(job)
	WithMaxAttempts(5)(job)
	WithDelay(time.Minute)(job)

	assert.Equal(t, 10, job.Priority)
	assert.Equal(t, 5, job.MaxAttempts)
	assert.WithinDuration(t, time.Now().Add(time.Minute), job.RunAt, 2*time.Second)
}

func TestQueueOptionsNormalized(t *testing.T) {
	q := New(nil, Options{})

	assert.Equal(t, 3, q.opts.MaxAttempts)
	assert.Equal(t, 5*time.Second, q.opts.BaseBackoff)
}

func TestRetryableDrivesRescheduling(t *testing.T) {
	// Fail() reschedules only transient failures with attempts left.
	assert.True(t, errs.Retryable(errs.New(errs.KindTransient, "timeout")))
	assert.False(t, errs.Retryable(errs.New(errs.KindValidation, "bad payload")))
	assert.False(t, errs.Retryable(errs.New(errs.KindFatal, "corrupt job")))
}

func TestEnqueueDequeueLifecycle(t *testing.T) {
	t.Skip("Integration test - requires database")

	// Against a real database: enqueue, dequeue claims it active with
	// attempts=1, Complete moves it to completed, PurgeCompleted removes it.
	q := New(nil, Options{})
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, "RECORD_SINGLE", map[string]string{"k": "v"})
	require.NoError(t, err)

	job, err := q.GetStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, job.State)
}
