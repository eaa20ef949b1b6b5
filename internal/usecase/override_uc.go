package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/repository"
	"moderation-service/internal/infra/metrics"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

const defaultReviewPageSize = 50

type OverrideInput struct {
	ContentID string
	Component model.Component
	Decision  model.Status
	Reason    string
	AdminID   string
}

type AdminUseCase interface {
	// Override sets a component directly, bypassing the decision policy.
	// A media decision is carried to the media item and every post embedding it.
	// Any component state is accepted, including AWAITING_VERDICT and an
	// earlier APPROVED or REJECTED; the decision then sticks against AI verdicts.
	Override(ctx context.Context, in OverrideInput) (*model.ContentItem, error)
	// ReviewQueue lists live items parked in NEEDS_REVIEW, oldest first.
	ReviewQueue(ctx context.Context, limit int) ([]*model.ContentItem, error)
	History(ctx context.Context, contentID string, limit int) ([]*model.ActivityEntry, error)
}

type adminUC struct {
	content   repository.ContentRepository
	activity  repository.ActivityRepository
	reconcile ReconcileUseCase
	log       *zerolog.Logger
}

func NewAdminUseCase(
	content repository.ContentRepository,
	activity repository.ActivityRepository,
	reconcile ReconcileUseCase,
	logger *zerolog.Logger,
) *adminUC {
	return &adminUC{content: content, activity: activity, reconcile: reconcile, log: logger}
}

func (u *adminUC) Override(ctx context.Context, in OverrideInput) (*model.ContentItem, error) {
	if !in.Decision.IsVerdict() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDecision, in.Decision)
	}
	if in.Component != model.ComponentText && in.Component != model.ComponentMedia {
		return nil, fmt.Errorf("%w: component %q", domain.ErrInvalidArgument, in.Component)
	}
	reason := strings.TrimSpace(in.Reason)
	if in.Decision == model.StatusRejected && reason == "" {
		reason = defaultAdminRejectReason
	}

	res, err := u.reconcile.Apply(ctx, VerdictInput{
		ContentID: in.ContentID,
		Component: in.Component,
		Status:    in.Decision,
		Reason:    reason,
		Source:    model.SourceAdmin,
		ActorID:   in.AdminID,
	})
	if err != nil {
		return nil, err
	}
	metrics.IncOverride(string(in.Component), string(in.Decision))
	u.log.Info().
		Str("admin_id", in.AdminID).
		Str("content_id", in.ContentID).
		Str("component", string(in.Component)).
		Str("decision", string(in.Decision)).
		Str("aggregate", string(res.Item.Status)).
		Msg("admin override applied")

	if in.Component == model.ComponentMedia {
		u.carryMediaDecision(ctx, res.Item, in.AdminID)
	}
	return res.Item, nil
}

// carryMediaDecision applies the origin's media state to the shared media
// item and every other post that embeds it.
func (u *adminUC) carryMediaDecision(ctx context.Context, origin *model.ContentItem, adminID string) {
	mediaID := origin.ReferencedMediaID()
	if mediaID == "" || origin.Media == nil {
		return
	}
	state := *origin.Media

	if origin.Kind == model.ContentKindPost {
		_, err := u.reconcile.Apply(ctx, VerdictInput{
			ContentID: mediaID,
			Component: model.ComponentMedia,
			Status:    state.Status,
			Reason:    state.Reason,
			Source:    state.Source,
			ActorID:   adminID,
		})
		if err != nil {
			u.log.Error().Err(err).Str("media_id", mediaID).Msg("failed to carry override to media item")
		}
	}
	n := u.reconcile.PropagateMedia(ctx, mediaID, state, adminID, origin.ID)
	u.log.Debug().Str("media_id", mediaID).Int("posts", n).Msg("media override propagated")
}

func (u *adminUC) ReviewQueue(ctx context.Context, limit int) ([]*model.ContentItem, error) {
	if limit <= 0 {
		limit = defaultReviewPageSize
	}
	return u.content.ListByStatus(ctx, repository.NoTX, model.StatusNeedsReview, limit)
}

func (u *adminUC) History(ctx context.Context, contentID string, limit int) ([]*model.ActivityEntry, error) {
	if _, err := u.content.FindByID(ctx, repository.NoTX, contentID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultReviewPageSize
	}
	return u.activity.ListByTarget(ctx, repository.NoTX, contentID, limit)
}
