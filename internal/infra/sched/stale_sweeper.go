package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
	"moderation-service/internal/domain/ports/repository"
	"moderation-service/internal/infra/metrics"
)

const sweepLockKey = "moderation:stale_sweep"

// Locker is satisfied by the redis locker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Redeliverer repeats the callback of a completed job.
type Redeliverer interface {
	Redeliver(job *model.ModerationJob) error
}

// StaleSweeper unsticks work that never reached a verdict: PENDING jobs that
// were never dispatched go back to the runner, and COMPLETED jobs whose
// component is still AWAITING_VERDICT get their callback delivered again.
type StaleSweeper struct {
	jobs       repository.JobRepository
	content    repository.ContentRepository
	dispatcher adapter.JobDispatcher
	redeliver  Redeliverer
	locker     Locker

	interval   time.Duration
	staleAfter time.Duration
	batch      int
	now        func() time.Time
	log        *zerolog.Logger
}

func NewStaleSweeper(
	jobs repository.JobRepository,
	content repository.ContentRepository,
	dispatcher adapter.JobDispatcher,
	redeliver Redeliverer,
	locker Locker,
	interval, staleAfter time.Duration,
	batch int,
	logger *zerolog.Logger,
) *StaleSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	l := logger.With().Str("component", "StaleSweeper").Logger()
	return &StaleSweeper{
		jobs:       jobs,
		content:    content,
		dispatcher: dispatcher,
		redeliver:  redeliver,
		locker:     locker,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      batch,
		now:        time.Now,
		log:        &l,
	}
}

func (s *StaleSweeper) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Dur("stale_after", s.staleAfter).Msg("Starting stale sweeper")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Stopping stale sweeper")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, domain.ErrLockNotAcquired) {
				s.log.Error().Err(err).Msg("stale sweep failed")
			}
		}
	}
}

// SweepReport counts what one pass did.
type SweepReport struct {
	Redispatched int
	Redelivered  int
}

// Sweep runs one pass. With a locker configured only the lock holder sweeps.
func (s *StaleSweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var rep SweepReport
	if s.locker != nil {
		token, err := s.locker.TryLock(ctx, sweepLockKey, s.interval)
		if err != nil {
			metrics.IncSweep("skipped")
			return rep, err
		}
		defer func() {
			if err := s.locker.Unlock(context.Background(), sweepLockKey, token); err != nil {
				s.log.Warn().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	cutoff := s.now().Add(-s.staleAfter)
	n, err := s.redispatchPending(ctx, cutoff)
	rep.Redispatched = n
	if err != nil {
		return rep, err
	}
	rep.Redelivered, err = s.redeliverCompleted(ctx, cutoff)
	if err != nil {
		return rep, err
	}

	metrics.IncSweep("completed")
	if rep.Redispatched > 0 || rep.Redelivered > 0 {
		s.log.Info().Int("redispatched", rep.Redispatched).Int("redelivered", rep.Redelivered).Msg("stale work recovered")
	}
	return rep, nil
}

func (s *StaleSweeper) redispatchPending(ctx context.Context, cutoff time.Time) (int, error) {
	pending, err := s.jobs.ListPendingBefore(ctx, cutoff, s.batch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range pending {
		if err := s.dispatcher.Dispatch(ctx, j.ID); err != nil {
			s.log.Warn().Err(err).Str("job_id", j.ID).Msg("redispatch failed")
			if errors.Is(err, context.Canceled) {
				return n, err
			}
			continue
		}
		metrics.IncSweep("redispatched")
		n++
	}
	return n, nil
}

func (s *StaleSweeper) redeliverCompleted(ctx context.Context, cutoff time.Time) (int, error) {
	items, err := s.content.ListStaleAwaiting(ctx, repository.NoTX, cutoff, s.batch)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool)
	n := 0
	for _, item := range items {
		for _, ref := range awaitingRefs(item) {
			job, err := s.jobs.LatestCompleted(ctx, ref.subjectID, ref.kind)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return n, err
			}
			if seen[job.ID] {
				continue
			}
			seen[job.ID] = true
			if err := s.redeliver.Redeliver(job); err != nil {
				s.log.Warn().Err(err).Str("job_id", job.ID).Msg("redelivery skipped")
				continue
			}
			metrics.IncSweep("redelivered")
			n++
		}
	}
	return n, nil
}

type jobRef struct {
	subjectID string
	kind      model.JobKind
}

// awaitingRefs names the job that decides each still-awaiting component.
func awaitingRefs(item *model.ContentItem) []jobRef {
	var out []jobRef
	if item.Text != nil && item.Text.Status == model.StatusAwaitingVerdict {
		out = append(out, jobRef{subjectID: item.ID, kind: model.JobKindTextModeration})
	}
	if item.Media != nil && item.Media.Status == model.StatusAwaitingVerdict {
		if id := item.ReferencedMediaID(); id != "" {
			out = append(out, jobRef{subjectID: id, kind: model.JobKindMediaModeration})
		}
	}
	return out
}
