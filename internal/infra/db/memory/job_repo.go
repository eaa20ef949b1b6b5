package memory

import (
	"context"
	"sort"
	"time"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/repository"
)

type JobRepo struct {
	s   *Store
	now func() time.Time
}

var _ repository.JobRepository = (*JobRepo)(nil)

func NewJobRepo(s *Store) *JobRepo { return &JobRepo{s: s, now: time.Now} }

func (r *JobRepo) Create(_ context.Context, tx repository.Tx, job *model.ModerationJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidArgument
	}
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	cp := job.Clone()
	insert := func(s *Store) { s.jobs[cp.ID] = cp }
	if t != nil {
		t.ops = append(t.ops, insert)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.jobs[cp.ID]; ok {
		return domain.ErrAlreadyExists
	}
	insert(r.s)
	return nil
}

func (r *JobRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.ModerationJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (r *JobRepo) MarkProcessing(_ context.Context, id string) (bool, error) {
	return r.transition(id, model.JobStatusPending, func(j *model.ModerationJob) {
		j.Status = model.JobStatusProcessing
	})
}

func (r *JobRepo) Complete(_ context.Context, id string, result model.JobResult) (bool, error) {
	return r.transition(id, model.JobStatusProcessing, func(j *model.ModerationJob) {
		j.Status = model.JobStatusCompleted
		j.Result = &result
	})
}

func (r *JobRepo) Fail(_ context.Context, id string, detail string) (bool, error) {
	return r.transition(id, model.JobStatusProcessing, func(j *model.ModerationJob) {
		j.Status = model.JobStatusFailed
		j.Error = detail
	})
}

func (r *JobRepo) ListPendingBefore(_ context.Context, before time.Time, limit int) ([]*model.ModerationJob, error) {
	r.s.mu.RLock()
	var out []*model.ModerationJob
	for _, j := range r.s.jobs {
		if j.Status == model.JobStatusPending && j.CreatedAt.Before(before) {
			out = append(out, j.Clone())
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *JobRepo) LatestCompleted(_ context.Context, subjectID string, kind model.JobKind) (*model.ModerationJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var best *model.ModerationJob
	for _, j := range r.s.jobs {
		if j.SubjectID != subjectID || j.Kind != kind || j.Status != model.JobStatusCompleted {
			continue
		}
		if best == nil || j.UpdatedAt.After(best.UpdatedAt) {
			best = j
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best.Clone(), nil
}

func (r *JobRepo) transition(id string, from model.JobStatus, apply func(j *model.ModerationJob)) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if j.Status != from {
		return false, nil
	}
	apply(j)
	j.UpdatedAt = r.now()
	return true, nil
}
