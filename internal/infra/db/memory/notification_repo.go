package memory

import (
	"context"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/repository"
)

type NotificationRepo struct {
	s *Store
}

var _ repository.NotificationRepository = (*NotificationRepo)(nil)

func NewNotificationRepo(s *Store) *NotificationRepo { return &NotificationRepo{s: s} }

func (r *NotificationRepo) Save(_ context.Context, tx repository.Tx, n *model.Notification) error {
	if n == nil || n.ID == "" {
		return domain.ErrInvalidArgument
	}
	cp := *n
	return stage(r.s, tx, func(s *Store) { s.notifications = append(s.notifications, &cp) })
}

// ListByUser returns the newest first.
func (r *NotificationRepo) ListByUser(_ context.Context, _ repository.Tx, userID string, limit int) ([]*model.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Notification
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		n := r.s.notifications[i]
		if n.UserID != userID {
			continue
		}
		cp := *n
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, _ repository.Tx, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

type ActivityRepo struct {
	s *Store
}

var _ repository.ActivityRepository = (*ActivityRepo)(nil)

func NewActivityRepo(s *Store) *ActivityRepo { return &ActivityRepo{s: s} }

func (r *ActivityRepo) Log(_ context.Context, tx repository.Tx, e *model.ActivityEntry) error {
	if e == nil || e.ID == "" {
		return domain.ErrInvalidArgument
	}
	cp := *e
	return stage(r.s, tx, func(s *Store) { s.activity = append(s.activity, &cp) })
}

func (r *ActivityRepo) ListByTarget(_ context.Context, _ repository.Tx, targetID string, limit int) ([]*model.ActivityEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.ActivityEntry
	for i := len(r.s.activity) - 1; i >= 0; i-- {
		if e := r.s.activity[i]; e.TargetID == targetID {
			cp := *e
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// stage defers op to commit inside a transaction, or applies it now.
func stage(s *Store, tx repository.Tx, op func(s *Store)) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t != nil {
		t.ops = append(t.ops, op)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	op(s)
	return nil
}
