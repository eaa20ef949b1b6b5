package model

import (
	"fmt"
	"math"
	"strings"

	"moderation-service/internal/domain"
)

// TextScores are per-label probabilities from text moderation.
type TextScores struct {
	Clean   float64 `json:"clean"`
	Spam    float64 `json:"spam"`
	Hate    float64 `json:"hate"`
	Sexual  float64 `json:"sexual"`
	Violent float64 `json:"violent"`
	Insult  float64 `json:"insult"`
}

// Badness is the highest non-clean score.
func (s TextScores) Badness() float64 {
	return math.Max(s.Spam, math.Max(s.Hate, math.Max(s.Sexual, math.Max(s.Violent, s.Insult))))
}

func (s TextScores) validate() error {
	for name, v := range map[string]float64{
		"clean": s.Clean, "spam": s.Spam, "hate": s.Hate,
		"sexual": s.Sexual, "violent": s.Violent, "insult": s.Insult,
	} {
		if err := checkUnit(name, v); err != nil {
			return err
		}
	}
	return nil
}

// MediaScores are image moderation probabilities.
type MediaScores struct {
	NSFW float64 `json:"nsfw"`
	Safe float64 `json:"safe"`
}

func (s MediaScores) Badness() float64 { return s.NSFW }

func (s MediaScores) validate() error {
	if err := checkUnit("nsfw", s.NSFW); err != nil {
		return err
	}
	return checkUnit("safe", s.Safe)
}

// TagResult is the detected label for a media item. An empty label means
// nothing was detected with enough confidence.
type TagResult struct {
	Label      string  `json:"detected_label"`
	Confidence float64 `json:"confidence"`
}

// SummaryResult condenses a set of comments.
type SummaryResult struct {
	OverallSentiment string `json:"overall_sentiment"`
	Liked            string `json:"liked"`
	Disliked         string `json:"disliked"`
}

// JobResult is a tagged union. Exactly one payload is set and it matches Kind.
type JobResult struct {
	Kind    JobKind        `json:"kind"`
	Text    *TextScores    `json:"text,omitempty"`
	Media   *MediaScores   `json:"media,omitempty"`
	Tag     *TagResult     `json:"tag,omitempty"`
	Summary *SummaryResult `json:"summary,omitempty"`
}

// Badness returns the decision input for moderation results.
func (r JobResult) Badness() (float64, bool) {
	switch {
	case r.Kind == JobKindTextModeration && r.Text != nil:
		return r.Text.Badness(), true
	case r.Kind == JobKindMediaModeration && r.Media != nil:
		return r.Media.Badness(), true
	}
	return 0, false
}

// Validate checks the payload matches the kind and every score is a probability.
func (r JobResult) Validate() error {
	set := 0
	for _, p := range []bool{r.Text != nil, r.Media != nil, r.Tag != nil, r.Summary != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: result must carry exactly one payload, got %d", domain.ErrInvalidArgument, set)
	}
	switch r.Kind {
	case JobKindTextModeration:
		if r.Text == nil {
			return mismatch(r.Kind)
		}
		return r.Text.validate()
	case JobKindMediaModeration:
		if r.Media == nil {
			return mismatch(r.Kind)
		}
		return r.Media.validate()
	case JobKindMediaTagging:
		if r.Tag == nil {
			return mismatch(r.Kind)
		}
		return checkUnit("confidence", r.Tag.Confidence)
	case JobKindSummary:
		if r.Summary == nil {
			return mismatch(r.Kind)
		}
		if strings.TrimSpace(r.Summary.OverallSentiment) == "" {
			return fmt.Errorf("%w: summary without sentiment", domain.ErrInvalidArgument)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", domain.ErrUnknownJobKind, r.Kind)
}

// ValidScore reports whether v is a probability.
func ValidScore(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func checkUnit(name string, v float64) error {
	if !ValidScore(v) {
		return fmt.Errorf("%w: %s=%v", domain.ErrScoreOutOfRange, name, v)
	}
	return nil
}

func mismatch(k JobKind) error {
	return fmt.Errorf("%w: payload does not match kind %s", domain.ErrInvalidArgument, k)
}
