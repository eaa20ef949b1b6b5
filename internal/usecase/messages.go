package usecase

import (
	"fmt"

	"moderation-service/internal/domain/model"
)

const (
	defaultRejectionReason   = "Content policy violation"
	defaultAdminRejectReason = "Rejected by admin"
	textRejectionReason      = "AI text moderation: inappropriate content detected"
	mediaRejectionReason     = "AI image moderation: inappropriate content detected"
)

// aiRejectionReason is recorded on a component the policy rejects.
func aiRejectionReason(c model.Component) string {
	if c == model.ComponentMedia {
		return mediaRejectionReason
	}
	return textRejectionReason
}

// notificationText returns the owner-facing title and message for an
// aggregate transition into status.
func notificationText(kind model.ContentKind, status model.Status, reason string) (title, message string, ok bool) {
	if reason == "" {
		reason = defaultRejectionReason
	}
	if kind == model.ContentKindMedia {
		switch status {
		case model.StatusApproved:
			return "Media approved", "Your uploaded media has been approved.", true
		case model.StatusRejected:
			return "Media rejected", fmt.Sprintf("Your media was rejected: %s", reason), true
		case model.StatusNeedsReview:
			return "Media under review", "Your media is being reviewed by a moderator.", true
		}
		return "", "", false
	}
	switch status {
	case model.StatusApproved:
		return "Post approved", "Your post has been approved and is now visible.", true
	case model.StatusRejected:
		return "Post rejected", fmt.Sprintf("Your post was rejected: %s", reason), true
	case model.StatusNeedsReview:
		return "Post under review", "Your post is being reviewed by a moderator.", true
	}
	return "", "", false
}
