package worker

import (
	"context"

	"moderation-service/internal/domain/ports/adapter"
	"moderation-service/internal/infra/metrics"
)

var _ adapter.JobDispatcher = (*PoolDispatcher)(nil)

// PoolDispatcher queues job executions on a Pool.
type PoolDispatcher struct {
	pool   *Pool
	runner *Runner
}

func NewPoolDispatcher(pool *Pool, runner *Runner) *PoolDispatcher {
	return &PoolDispatcher{pool: pool, runner: runner}
}

// Dispatch returns ErrQueueFull when the pool is saturated; the job stays
// PENDING for the sweeper to pick up.
func (d *PoolDispatcher) Dispatch(_ context.Context, jobID string) error {
	err := d.pool.Submit(func(ctx context.Context) error {
		d.runner.Execute(ctx, jobID)
		return nil
	})
	if err != nil {
		metrics.IncDispatch("rejected")
		return err
	}
	metrics.IncDispatch("queued")
	return nil
}
