package service

import (
	"context"

	"analytics-service/internal/queue"
)

// JobAdmin exposes the queue's administrative surface to collaborators
type JobAdmin struct {
	queue *queue.Queue
}

// NewJobAdmin creates a new job admin facade
func NewJobAdmin(q *queue.Queue) *JobAdmin {
	return &JobAdmin{queue: q}
}

// Status returns a job's current state
func (a *JobAdmin) Status(ctx context.Context, jobID string) (*queue.Job, error) {
	return a.queue.GetStatus(ctx, jobID)
}

// Remove deletes a job
func (a *JobAdmin) Remove(ctx context.Context, jobID string) error {
	return a.queue.Remove(ctx, jobID)
}

// RetryFailed requeues failed jobs, optionally filtered by type
func (a *JobAdmin) RetryFailed(ctx context.Context, jobType string) (int64, error) {
	return a.queue.RetryFailed(ctx, jobType)
}
