package capability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"moderation-service/internal/config"
	"moderation-service/internal/domain/ports/adapter"
)

// NewRegistry builds the provider set the job runner is constructed with.
// The HTTP scoring service backs every capability unless an alternative
// provider is selected for text or summaries.
func NewRegistry(ctx context.Context, cfg config.CapabilityConfig, logger *zerolog.Logger) (adapter.Capabilities, error) {
	log := logger.With().Str("component", "capability").Logger()

	httpc, err := NewHTTPClient(cfg.BaseURL, cfg.RequestTimeout)
	if err != nil {
		return adapter.Capabilities{}, err
	}
	caps := adapter.Capabilities{Text: httpc, Media: httpc, Tagger: httpc, Summarizer: httpc}
	truncate := NewTruncator(cfg.MaxInputTokens)

	switch cfg.TextProvider {
	case "openai":
		m, err := NewOpenAIModerator(cfg.OpenAIKey, cfg.OpenAIModel, "", truncate)
		if err != nil {
			return adapter.Capabilities{}, fmt.Errorf("text provider: %w", err)
		}
		caps.Text = m
	case "", "http":
	default:
		return adapter.Capabilities{}, fmt.Errorf("unknown text provider %q", cfg.TextProvider)
	}

	switch cfg.SummaryProvider {
	case "gemini":
		s, err := NewGeminiSummarizer(ctx, cfg.GeminiKey, "", cfg.GeminiModel, truncate)
		if err != nil {
			return adapter.Capabilities{}, fmt.Errorf("summary provider: %w", err)
		}
		caps.Summarizer = s
	case "", "http":
	default:
		return adapter.Capabilities{}, fmt.Errorf("unknown summary provider %q", cfg.SummaryProvider)
	}

	log.Info().
		Str("base_url", cfg.BaseURL).
		Str("text", cfg.TextProvider).
		Str("summary", cfg.SummaryProvider).
		Int("concurrent_limit", cfg.ConcurrentLimit).
		Msg("capabilities ready")
	return Limit(caps, cfg.ConcurrentLimit), nil
}
