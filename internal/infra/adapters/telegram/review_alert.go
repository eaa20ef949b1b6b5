package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
)

var _ adapter.ReviewAlerter = (*ReviewAlerter)(nil)

// sender is the part of *tgbotapi.BotAPI the alerter uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ReviewAlerter posts a message to the moderators' chat whenever an item
// is parked in NEEDS_REVIEW.
type ReviewAlerter struct {
	bot    sender
	chatID int64
	log    *zerolog.Logger
}

func NewReviewAlerter(token string, chatID int64, logger *zerolog.Logger) (*ReviewAlerter, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram: token and chat id are required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return newReviewAlerter(bot, chatID, logger), nil
}

func newReviewAlerter(bot sender, chatID int64, logger *zerolog.Logger) *ReviewAlerter {
	l := logger.With().Str("component", "telegram_alerter").Logger()
	return &ReviewAlerter{bot: bot, chatID: chatID, log: &l}
}

func (a *ReviewAlerter) AlertReview(ctx context.Context, item *model.ContentItem) error {
	msg := tgbotapi.NewMessage(a.chatID, reviewText(item))
	msg.DisableWebPagePreview = true

	errCh := make(chan error, 1)
	go func() {
		_, err := a.bot.Send(msg)
		errCh <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("telegram: send review alert: %w", err)
		}
	}
	a.log.Debug().Str("content_id", item.ID).Msg("review alert sent")
	return nil
}

func reviewText(item *model.ContentItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review needed: %s %s\n", strings.ToLower(string(item.Kind)), item.ID)
	fmt.Fprintf(&b, "Owner: %s\n", item.OwnerID)
	for _, c := range []model.Component{model.ComponentText, model.ComponentMedia} {
		st := item.Component(c)
		if st == nil {
			continue
		}
		line := fmt.Sprintf("%s: %s", strings.ToLower(string(c)), st.Status)
		if st.Score != nil {
			line += fmt.Sprintf(" (score %.2f)", *st.Score)
		}
		b.WriteString(line + "\n")
	}
	if item.Body != "" {
		body := []rune(item.Body)
		if len(body) > 200 {
			body = append(body[:200], '…')
		}
		fmt.Fprintf(&b, "\n%s", string(body))
	}
	return strings.TrimRight(b.String(), "\n")
}
