// Package policy maps a raw badness score onto a moderation verdict.
package policy

import (
	"fmt"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
)

const (
	DefaultRejectThreshold = 0.8
	DefaultReviewThreshold = 0.4
)

// Policy holds two ordered thresholds. The zero value is not usable; build one with New.
type Policy struct {
	reject float64
	review float64
}

// New validates 0 <= review < reject <= 1.
func New(reject, review float64) (Policy, error) {
	if !model.ValidScore(reject) || !model.ValidScore(review) || reject <= review {
		return Policy{}, fmt.Errorf("%w: reject=%v review=%v", domain.ErrInvalidThresholds, reject, review)
	}
	return Policy{reject: reject, review: review}, nil
}

// Default returns the 0.8 / 0.4 policy.
func Default() Policy {
	return Policy{reject: DefaultRejectThreshold, review: DefaultReviewThreshold}
}

// Decide maps score to a verdict. Each band's lower bound is inclusive.
func (p Policy) Decide(score float64) (model.Status, error) {
	if !model.ValidScore(score) {
		return "", fmt.Errorf("%w: %v", domain.ErrScoreOutOfRange, score)
	}
	switch {
	case score >= p.reject:
		return model.StatusRejected, nil
	case score >= p.review:
		return model.StatusNeedsReview, nil
	}
	return model.StatusApproved, nil
}

func (p Policy) RejectThreshold() float64 { return p.reject }
func (p Policy) ReviewThreshold() float64 { return p.review }
