package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/imsebeom/ai-survey/internal/config"
)

// GeminiGenerator implements Generator with Google's Gemini models
type GeminiGenerator struct {
	client *genai.Client
	models config.AIModels
}

// NewGeminiGenerator creates a new Gemini client
func NewGeminiGenerator(ctx context.Context, cfg config.AIConfig) (*GeminiGenerator, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		models: cfg.Models,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, task Task, parts ...Part) (string, error) {
	m := g.client.GenerativeModel(modelFor(g.models, task))
	if task == TaskDraft {
		m.ResponseMIMEType = "application/json"
		m.SetTemperature(0.4)
	}

	resp, err := m.GenerateContent(ctx, toGenaiParts(parts)...)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: no content generated")
	}

	var out strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			out.WriteString(string(t))
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("gemini: response has no text")
	}
	return out.String(), nil
}

// Close closes the Gemini client
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func toGenaiParts(parts []Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsBlob() {
			out = append(out, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})
			continue
		}
		out = append(out, genai.Text(p.Text))
	}
	return out
}
