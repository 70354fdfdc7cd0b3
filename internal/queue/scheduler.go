package queue

import (
	"context"
	"sync"
	"time"

	"analytics-service/internal/util"

	"go.uber.org/zap"
)

// TaskHandler runs one recurring task invocation
type TaskHandler func(ctx context.Context) error

// Task is one recurring registration
type Task struct {
	Name     string
	Interval time.Duration
	Handler  TaskHandler
}

// TaskStats counts outcomes per task
type TaskStats struct {
	Success int64
	Failure int64
}

// Scheduler owns a list of (name, interval, handler) registrations and runs
// each on its own ticker. It is started and stopped deterministically by the
// owning process; nothing registers itself through package side effects.
type Scheduler struct {
	mu      sync.Mutex
	tasks   []Task
	stats   map[string]*TaskStats
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	logger  *zap.Logger
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		stats:  make(map[string]*TaskStats),
		logger: util.GetLogger(),
	}
}

// Register adds a recurring task. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, handler TaskHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, Task{Name: name, Interval: interval, Handler: handler})
	s.stats[name] = &TaskStats{}
}

// Start launches one goroutine per task. Each task fires once immediately,
// then on every interval tick until Stop or context cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.run(ctx, task)
	}
	s.logger.Info("Scheduler started", zap.Int("tasks", len(s.tasks)))
}

// Stop cancels all tasks and waits for them to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// Stats returns a copy of the outcome counters for a task
func (s *Scheduler) Stats(name string) TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stats[name]; ok {
		return *st
	}
	return TaskStats{}
}

func (s *Scheduler) run(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.invoke(ctx, task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.invoke(ctx, task)
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, task Task) {
	err := task.Handler(ctx)

	s.mu.Lock()
	st := s.stats[task.Name]
	if err != nil {
		st.Failure++
	} else {
		st.Success++
	}
	s.mu.Unlock()

	if err != nil {
		util.SchedulerRunsTotal.WithLabelValues(task.Name, "failure").Inc()
		s.logger.Error("Recurring task failed", zap.String("task", task.Name), zap.Error(err))
		return
	}
	util.SchedulerRunsTotal.WithLabelValues(task.Name, "success").Inc()
	s.logger.Debug("Recurring task completed", zap.String("task", task.Name))
}
