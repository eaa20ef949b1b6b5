package memory

import (
	"context"
	"sort"
	"time"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/repository"
)

type ContentRepo struct {
	s *Store
}

var _ repository.ContentRepository = (*ContentRepo)(nil)

func NewContentRepo(s *Store) *ContentRepo { return &ContentRepo{s: s} }

func (r *ContentRepo) Create(ctx context.Context, tx repository.Tx, item *model.ContentItem) error {
	if item == nil || item.ID == "" {
		return domain.ErrInvalidArgument
	}
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t != nil {
		if err := t.lock(ctx, item.ID); err != nil {
			return err
		}
		if _, ok := t.content[item.ID]; ok || r.exists(item.ID) {
			return domain.ErrAlreadyExists
		}
		t.content[item.ID] = item.Clone()
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.content[item.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.content[item.ID] = item.Clone()
	return nil
}

func (r *ContentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ContentItem, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if t != nil {
		if err := t.lock(ctx, id); err != nil {
			return nil, err
		}
		if staged, ok := t.content[id]; ok {
			return staged.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.content[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return item.Clone(), nil
}

func (r *ContentRepo) Update(ctx context.Context, tx repository.Tx, item *model.ContentItem) error {
	if item == nil {
		return domain.ErrInvalidArgument
	}
	return r.mutate(ctx, tx, item.ID, func(cur *model.ContentItem) *model.ContentItem {
		next := item.Clone()
		next.Version = cur.Version + 1
		next.CreatedAt = cur.CreatedAt
		item.Version = next.Version
		return next
	})
}

func (r *ContentRepo) UpdateTag(ctx context.Context, tx repository.Tx, id string, tag model.TagResult) error {
	return r.mutate(ctx, tx, id, func(cur *model.ContentItem) *model.ContentItem {
		conf := tag.Confidence
		cur.DetectedLabel = tag.Label
		cur.LabelConfidence = &conf
		cur.UpdatedAt = time.Now()
		return cur
	})
}

func (r *ContentRepo) SoftDelete(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	return r.mutate(ctx, tx, id, func(cur *model.ContentItem) *model.ContentItem {
		cur.DeletedAt = &at
		cur.UpdatedAt = at
		return cur
	})
}

func (r *ContentRepo) ListByMediaID(_ context.Context, _ repository.Tx, mediaID string) ([]*model.ContentItem, error) {
	return r.filter(func(c *model.ContentItem) bool {
		return c.Kind == model.ContentKindPost && c.MediaID == mediaID && !c.IsDeleted()
	}, 0), nil
}

func (r *ContentRepo) ListByStatus(_ context.Context, _ repository.Tx, status model.Status, limit int) ([]*model.ContentItem, error) {
	return r.filter(func(c *model.ContentItem) bool {
		return c.Status == status && !c.IsDeleted()
	}, limit), nil
}

func (r *ContentRepo) ListStaleAwaiting(_ context.Context, _ repository.Tx, olderThan time.Time, limit int) ([]*model.ContentItem, error) {
	return r.filter(func(c *model.ContentItem) bool {
		return c.Status == model.StatusAwaitingVerdict && !c.IsDeleted() && c.CreatedAt.Before(olderThan)
	}, limit), nil
}

// mutate applies fn to the current item under its lock. Inside a
// transaction the result is staged; otherwise it is written immediately.
func (r *ContentRepo) mutate(ctx context.Context, tx repository.Tx, id string, fn func(cur *model.ContentItem) *model.ContentItem) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t != nil {
		cur, err := r.FindByID(ctx, t, id)
		if err != nil {
			return err
		}
		t.content[id] = fn(cur)
		return nil
	}

	if err := r.s.lockItem(ctx, id); err != nil {
		return err
	}
	defer r.s.unlockItem(id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.content[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.s.content[id] = fn(cur.Clone())
	return nil
}

func (r *ContentRepo) exists(id string) bool {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.content[id]
	return ok
}

func (r *ContentRepo) filter(keep func(*model.ContentItem) bool, limit int) []*model.ContentItem {
	r.s.mu.RLock()
	var out []*model.ContentItem
	for _, c := range r.s.content {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
