package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
)

var _ adapter.Summarizer = (*GeminiSummarizer)(nil)

const summaryPrompt = `You summarize visitor comments about a place.
Reply with JSON only, shaped as {"overall_sentiment": "positive"|"neutral"|"negative", "liked": string, "disliked": string}.
Each of liked and disliked is one short sentence, empty when nothing stands out.

Comments:
`

// GeminiSummarizer produces comment summaries with the Gemini API.
type GeminiSummarizer struct {
	client   *genai.Client
	model    string
	maxOut   int32
	truncate *Truncator
}

func NewGeminiSummarizer(ctx context.Context, apiKey, baseURL, modelName string, truncate *Truncator) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiSummarizer{client: c, model: modelName, maxOut: 512, truncate: truncate}, nil
}

func (g *GeminiSummarizer) Summarize(ctx context.Context, comments []string) (model.SummaryResult, error) {
	if len(comments) == 0 {
		return model.SummaryResult{}, errors.New("gemini: no comments")
	}
	var b strings.Builder
	b.WriteString(summaryPrompt)
	for _, c := range g.truncate.Fit(comments) {
		b.WriteString("- ")
		b.WriteString(strings.ReplaceAll(c, "\n", " "))
		b.WriteString("\n")
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(b.String()), &genai.GenerateContentConfig{
		MaxOutputTokens:  g.maxOut,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return model.SummaryResult{}, err
	}
	return parseSummary(resp.Text())
}

// parseSummary accepts the model's JSON reply, tolerating a fenced block.
func parseSummary(raw string) (model.SummaryResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.SummaryResult{}, errors.New("gemini: empty reply")
	}
	var out model.SummaryResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.SummaryResult{}, fmt.Errorf("gemini: decode summary: %w", err)
	}
	out.OverallSentiment = strings.ToLower(strings.TrimSpace(out.OverallSentiment))
	switch out.OverallSentiment {
	case "positive", "neutral", "negative":
	default:
		out.OverallSentiment = "neutral"
	}
	return out, nil
}
