package booking

import (
	"context"
	"sync"

	"github.com/Domenick1991/smartticket/internal/logger"
	"github.com/Domenick1991/smartticket/internal/metrics"
)

// TaskRunner runs detached side effects of lifecycle operations. A task
// outlives the request that scheduled it; its error is logged and dropped.
type TaskRunner struct {
	wg      sync.WaitGroup
	log     logger.Logger
	metrics *metrics.Metrics
}

func NewTaskRunner(log logger.Logger, m *metrics.Metrics) *TaskRunner {
	return &TaskRunner{log: log, metrics: m}
}

// Go starts task in its own goroutine on a context that keeps ctx's values
// but not its cancellation.
func (r *TaskRunner) Go(ctx context.Context, name string, task func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("background task panicked", "task", name, "panic", p)
				r.count(name, "panic")
			}
		}()

		if err := task(detached); err != nil {
			r.log.Error("background task failed", "task", name, "error", err)
			r.count(name, "failed")
			return
		}
		r.count(name, "ok")
	}()
}

// Wait blocks until every started task has returned.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}

func (r *TaskRunner) count(name, outcome string) {
	if r.metrics != nil {
		r.metrics.BackgroundTasks.WithLabelValues(name, outcome).Inc()
	}
}
