package traits

import (
	"context"
	"encoding/json"
	"fmt"

	genai "google.golang.org/genai"
)

// Labeler ranks descriptive labels for raw image bytes.
type Labeler interface {
	Labels(ctx context.Context, image []byte) ([]Label, error)
}

const labelPrompt = `List up to 5 short descriptive labels for this image, most confident first.
Respond with a JSON array of objects: [{"label": "...", "score": 0.0-1.0}].
Omit "score" when you cannot estimate confidence.`

// GeminiLabeler asks a multimodal model for ranked labels in JSON mode.
type GeminiLabeler struct {
	cli   *genai.Client
	model string
}

func NewGeminiLabeler(ctx context.Context, apiKey, model string) (*GeminiLabeler, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiLabeler{cli: cli, model: model}, nil
}

func (g *GeminiLabeler) Labels(ctx context.Context, image []byte) ([]Label, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{
			{Text: labelPrompt},
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: image}},
		}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("labeler: empty response")
	}

	var decoded []struct {
		Label string   `json:"label"`
		Score *float64 `json:"score"`
	}
	txt := resp.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(txt), &decoded); err != nil {
		return nil, fmt.Errorf("labeler: invalid JSON from model: %w", err)
	}

	labels := make([]Label, 0, len(decoded))
	for _, d := range decoded {
		labels = append(labels, Label{Description: d.Label, Score: d.Score})
	}
	return labels, nil
}
