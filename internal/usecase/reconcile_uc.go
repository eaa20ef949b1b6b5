package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
	"moderation-service/internal/domain/ports/repository"
	"moderation-service/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// VerdictInput is one component verdict to apply.
type VerdictInput struct {
	ContentID string
	Component model.Component
	Status    model.Status
	Score     *float64
	Reason    string
	Source    model.VerdictSource
	ActorID   string
}

// ReconcileResult describes what applying a verdict did.
type ReconcileResult struct {
	Item     *model.ContentItem
	Previous model.Status
	// Changed is true when the aggregate transitioned.
	Changed bool
	// Ignored is true when an AI verdict hit a component an admin already decided.
	Ignored bool
	// Duplicate is true when the component already held this exact verdict;
	// nothing was written.
	Duplicate bool
}

type ReconcileUseCase interface {
	// Apply writes one component verdict and recomputes the aggregate, all
	// under the item's lock. A notification is recorded in the same
	// transaction when the aggregate changes.
	Apply(ctx context.Context, in VerdictInput) (*ReconcileResult, error)
	// PropagateMedia applies a media component state to every live post that
	// embeds mediaID, except skipID. Each post is reconciled on its own and
	// failures are logged; the number of posts updated is returned.
	PropagateMedia(ctx context.Context, mediaID string, state model.ComponentState, actorID, skipID string) int
}

type reconcileUC struct {
	tm            repository.TransactionManager
	content       repository.ContentRepository
	notifications repository.NotificationRepository
	activity      repository.ActivityRepository
	alerter       adapter.ReviewAlerter
	log           *zerolog.Logger
	now           func() time.Time
}

func NewReconcileUseCase(
	tm repository.TransactionManager,
	content repository.ContentRepository,
	notifications repository.NotificationRepository,
	activity repository.ActivityRepository,
	alerter adapter.ReviewAlerter,
	logger *zerolog.Logger,
) *reconcileUC {
	if alerter == nil {
		alerter = adapter.NoopAlerter{}
	}
	return &reconcileUC{
		tm:            tm,
		content:       content,
		notifications: notifications,
		activity:      activity,
		alerter:       alerter,
		log:           logger,
		now:           time.Now,
	}
}

func (u *reconcileUC) Apply(ctx context.Context, in VerdictInput) (*ReconcileResult, error) {
	if !in.Status.IsVerdict() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDecision, in.Status)
	}

	var res ReconcileResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		res = ReconcileResult{}
		item, err := u.content.FindByID(ctx, tx, in.ContentID)
		if err != nil {
			return err
		}
		comp := item.Component(in.Component)
		if comp == nil {
			return fmt.Errorf("%w: %s on %s", domain.ErrComponentAbsent, in.Component, item.ID)
		}
		res.Item = item
		res.Previous = item.Status

		if in.Source == model.SourceAI && comp.Source == model.SourceAdmin {
			res.Ignored = true
			return nil
		}
		if sameVerdict(comp, in) {
			res.Duplicate = true
			return nil
		}

		now := u.now()
		comp.Status = in.Status
		comp.Score = in.Score
		comp.Source = in.Source
		comp.Reason = ""
		if in.Status == model.StatusRejected {
			comp.Reason = in.Reason
		}
		if in.Score != nil {
			score := *in.Score
			item.Confidence = &score
		}

		next := item.DeriveStatus()
		item.RejectionReason = ""
		if next == model.StatusRejected {
			item.RejectionReason = rejectionReason(item, in)
		}
		item.Status = next
		item.UpdatedAt = now
		if err := u.content.Update(ctx, tx, item); err != nil {
			return err
		}

		if err := u.activity.Log(ctx, tx, &model.ActivityEntry{
			ID:       uuid.NewString(),
			ActorID:  in.ActorID,
			Action:   activityAction(in),
			TargetID: item.ID,
			Metadata: map[string]any{
				"component": string(in.Component),
				"status":    string(in.Status),
				"score":     in.Score,
				"aggregate": string(next),
			},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		res.Changed = next != res.Previous
		if !res.Changed || item.IsDeleted() {
			return nil
		}
		return u.notify(ctx, tx, item, now)
	})
	if err != nil {
		return nil, err
	}

	u.afterCommit(ctx, in, &res)
	return &res, nil
}

func (u *reconcileUC) notify(ctx context.Context, tx repository.Tx, item *model.ContentItem, now time.Time) error {
	title, msg, ok := notificationText(item.Kind, item.Status, item.RejectionReason)
	if !ok {
		return nil
	}
	return u.notifications.Save(ctx, tx, &model.Notification{
		ID:        uuid.NewString(),
		UserID:    item.OwnerID,
		ContentID: item.ID,
		Status:    item.Status,
		Title:     title,
		Message:   msg,
		CreatedAt: now,
	})
}

func (u *reconcileUC) afterCommit(ctx context.Context, in VerdictInput, res *ReconcileResult) {
	log := u.log.With().Str("content_id", in.ContentID).Str("component", string(in.Component)).Logger()
	if res.Ignored {
		log.Info().Str("status", string(in.Status)).Msg("ai verdict ignored; component decided by admin")
		return
	}
	if res.Duplicate {
		log.Debug().Str("status", string(in.Status)).Msg("verdict already applied")
		return
	}
	metrics.IncVerdict(string(in.Component), string(in.Status), string(in.Source))
	if !res.Changed {
		log.Debug().Str("aggregate", string(res.Item.Status)).Msg("verdict applied; aggregate unchanged")
		return
	}

	metrics.IncTransition(string(res.Item.Status))
	if !res.Item.IsDeleted() {
		metrics.IncNotification(string(res.Item.Status))
	}
	log.Info().
		Str("from", string(res.Previous)).
		Str("to", string(res.Item.Status)).
		Msg("aggregate status changed")

	if res.Item.Status == model.StatusNeedsReview && !res.Item.IsDeleted() {
		if err := u.alerter.AlertReview(ctx, res.Item); err != nil {
			log.Warn().Err(err).Msg("review alert failed")
		}
	}
}

func (u *reconcileUC) PropagateMedia(ctx context.Context, mediaID string, state model.ComponentState, actorID, skipID string) int {
	posts, err := u.content.ListByMediaID(ctx, repository.NoTX, mediaID)
	if err != nil {
		u.log.Error().Err(err).Str("media_id", mediaID).Msg("failed to list posts embedding media")
		return 0
	}

	updated := 0
	for _, p := range posts {
		if p.ID == skipID {
			continue
		}
		_, err := u.Apply(ctx, VerdictInput{
			ContentID: p.ID,
			Component: model.ComponentMedia,
			Status:    state.Status,
			Score:     state.Score,
			Reason:    state.Reason,
			Source:    state.Source,
			ActorID:   actorID,
		})
		if err != nil {
			u.log.Error().Err(err).Str("media_id", mediaID).Str("post_id", p.ID).Msg("media verdict fan-out failed")
			continue
		}
		updated++
	}
	return updated
}

// rejectionReason prefers the reason of the verdict being applied and falls
// back to whichever component is already rejected.
func rejectionReason(item *model.ContentItem, in VerdictInput) string {
	if in.Status == model.StatusRejected && in.Reason != "" {
		return in.Reason
	}
	if r := item.FirstRejectionReason(); r != "" {
		return r
	}
	return defaultRejectionReason
}

func activityAction(in VerdictInput) model.ActivityAction {
	if in.Source == model.SourceAdmin {
		switch in.Status {
		case model.StatusApproved:
			return model.ActionAdminApproved
		case model.StatusRejected:
			return model.ActionAdminRejected
		default:
			return model.ActionAdminReview
		}
	}
	if in.Component == model.ComponentMedia {
		return model.ActionAIMediaVerdict
	}
	return model.ActionAITextVerdict
}

func sameVerdict(comp *model.ComponentState, in VerdictInput) bool {
	if comp.Status != in.Status || comp.Source != in.Source {
		return false
	}
	if in.Status == model.StatusRejected && comp.Reason != in.Reason {
		return false
	}
	switch {
	case comp.Score == nil && in.Score == nil:
		return true
	case comp.Score == nil || in.Score == nil:
		return false
	}
	return *comp.Score == *in.Score
}
