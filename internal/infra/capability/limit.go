package capability

import (
	"context"

	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
)

// limiter bounds in-flight provider calls. Acquire gives up when ctx ends.
type limiter chan struct{}

func (l limiter) acquire(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l limiter) release() { <-l }

type limitedText struct {
	inner adapter.TextModerator
	sem   limiter
}

func (l *limitedText) ModerateText(ctx context.Context, text string) (model.TextScores, error) {
	if err := l.sem.acquire(ctx); err != nil {
		return model.TextScores{}, err
	}
	defer l.sem.release()
	return l.inner.ModerateText(ctx, text)
}

type limitedMedia struct {
	inner adapter.MediaModerator
	sem   limiter
}

func (l *limitedMedia) ModerateMedia(ctx context.Context, f adapter.MediaFile) (model.MediaScores, error) {
	if err := l.sem.acquire(ctx); err != nil {
		return model.MediaScores{}, err
	}
	defer l.sem.release()
	return l.inner.ModerateMedia(ctx, f)
}

type limitedTagger struct {
	inner adapter.MediaTagger
	sem   limiter
}

func (l *limitedTagger) TagMedia(ctx context.Context, f adapter.MediaFile) (model.TagResult, error) {
	if err := l.sem.acquire(ctx); err != nil {
		return model.TagResult{}, err
	}
	defer l.sem.release()
	return l.inner.TagMedia(ctx, f)
}

type limitedSummarizer struct {
	inner adapter.Summarizer
	sem   limiter
}

func (l *limitedSummarizer) Summarize(ctx context.Context, comments []string) (model.SummaryResult, error) {
	if err := l.sem.acquire(ctx); err != nil {
		return model.SummaryResult{}, err
	}
	defer l.sem.release()
	return l.inner.Summarize(ctx, comments)
}

// Limit wraps every provider in caps behind one shared concurrency cap.
func Limit(caps adapter.Capabilities, maxConcurrent int) adapter.Capabilities {
	if maxConcurrent <= 0 {
		return caps
	}
	sem := make(limiter, maxConcurrent)
	out := adapter.Capabilities{}
	if caps.Text != nil {
		out.Text = &limitedText{inner: caps.Text, sem: sem}
	}
	if caps.Media != nil {
		out.Media = &limitedMedia{inner: caps.Media, sem: sem}
	}
	if caps.Tagger != nil {
		out.Tagger = &limitedTagger{inner: caps.Tagger, sem: sem}
	}
	if caps.Summarizer != nil {
		out.Summarizer = &limitedSummarizer{inner: caps.Summarizer, sem: sem}
	}
	return out
}
