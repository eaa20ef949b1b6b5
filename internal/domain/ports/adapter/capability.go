package adapter

import (
	"context"

	"moderation-service/internal/domain/model"
)

// MediaFile is a local copy of a stored media object.
type MediaFile struct {
	Path      string
	ObjectKey string
	MimeType  string
}

type TextModerator interface {
	ModerateText(ctx context.Context, text string) (model.TextScores, error)
}

type MediaModerator interface {
	ModerateMedia(ctx context.Context, media MediaFile) (model.MediaScores, error)
}

type MediaTagger interface {
	TagMedia(ctx context.Context, media MediaFile) (model.TagResult, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, comments []string) (model.SummaryResult, error)
}

// Capabilities is the provider set a job runner is built with. A nil
// provider makes jobs of that kind fail.
type Capabilities struct {
	Text       TextModerator
	Media      MediaModerator
	Tagger     MediaTagger
	Summarizer Summarizer
}

// MediaFetcher resolves an object key into a local file. release must be
// called exactly once and removes anything Fetch created.
type MediaFetcher interface {
	Fetch(ctx context.Context, objectKey string) (path string, release func(), err error)
}
