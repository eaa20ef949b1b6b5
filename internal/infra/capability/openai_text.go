package capability

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
)

var _ adapter.TextModerator = (*OpenAIModerator)(nil)

// OpenAIModerator scores text with the OpenAI moderation endpoint.
type OpenAIModerator struct {
	client   openai.Client
	model    string
	truncate *Truncator
}

func NewOpenAIModerator(apiKey, modelName, baseURL string, truncate *Truncator) (*OpenAIModerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: empty api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIModerator{
		client:   openai.NewClient(opts...),
		model:    modelName,
		truncate: truncate,
	}, nil
}

func (o *OpenAIModerator) ModerateText(ctx context.Context, text string) (model.TextScores, error) {
	params := openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(o.truncate.Truncate(text))},
	}
	if o.model != "" {
		params.Model = openai.ModerationModel(o.model)
	}
	resp, err := o.client.Moderations.New(ctx, params)
	if err != nil {
		return model.TextScores{}, err
	}
	if len(resp.Results) == 0 {
		return model.TextScores{}, errors.New("openai: empty moderation result")
	}
	s := resp.Results[0].CategoryScores
	return toTextScores(categoryScores{
		harassment:   maxOf(s.Harassment, s.HarassmentThreatening),
		hate:         maxOf(s.Hate, s.HateThreatening),
		sexual:       maxOf(s.Sexual, s.SexualMinors),
		violence:     maxOf(s.Violence, s.ViolenceGraphic, s.SelfHarm, s.SelfHarmIntent, s.SelfHarmInstructions),
		illicitOther: maxOf(s.Illicit, s.IllicitViolent),
	}), nil
}

// categoryScores is the provider's taxonomy folded into our categories.
type categoryScores struct {
	harassment   float64
	hate         float64
	sexual       float64
	violence     float64
	illicitOther float64
}

// toTextScores maps provider categories onto TextScores. Illicit content
// has no dedicated bucket and counts as spam.
func toTextScores(c categoryScores) model.TextScores {
	ts := model.TextScores{
		Spam:    clamp01(c.illicitOther),
		Hate:    clamp01(c.hate),
		Sexual:  clamp01(c.sexual),
		Violent: clamp01(c.violence),
		Insult:  clamp01(c.harassment),
	}
	ts.Clean = clamp01(1 - ts.Badness())
	return ts
}

func maxOf(vals ...float64) float64 {
	m := 0.0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
