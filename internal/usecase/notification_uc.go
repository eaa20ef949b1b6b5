package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

const maxNotificationPage = 100

type NotificationUseCase interface {
	// List returns the user's notifications, newest first.
	List(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type notificationUC struct {
	notifications repository.NotificationRepository
	log           *zerolog.Logger
}

func NewNotificationUseCase(notifications repository.NotificationRepository, logger *zerolog.Logger) *notificationUC {
	return &notificationUC{notifications: notifications, log: logger}
}

func (n *notificationUC) List(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 || limit > maxNotificationPage {
		limit = maxNotificationPage
	}
	return n.notifications.ListByUser(ctx, repository.NoTX, userID, limit)
}

func (n *notificationUC) MarkRead(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(id) == "" {
		return domain.ErrInvalidArgument
	}
	return n.notifications.MarkRead(ctx, repository.NoTX, userID, id)
}
