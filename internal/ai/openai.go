package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/imsebeom/ai-survey/internal/config"
)

// OpenAIGenerator implements Generator with the OpenAI chat completion API
type OpenAIGenerator struct {
	client *openai.Client
	models config.AIModels
}

func NewOpenAIGenerator(cfg config.AIConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		models: cfg.Models,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, task Task, parts ...Part) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    modelFor(g.models, task),
		Messages: []openai.ChatCompletionMessage{toOpenAIMessage(parts)},
	}
	if task == TaskDraft {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: no content generated")
	}
	return resp.Choices[0].Message.Content, nil
}

// toOpenAIMessage folds all parts into one user message. Plain text stays a
// string; images switch the message to multi-part content.
func toOpenAIMessage(parts []Part) openai.ChatCompletionMessage {
	hasBlob := false
	for _, p := range parts {
		if p.IsBlob() {
			hasBlob = true
			break
		}
	}

	if !hasBlob {
		text := ""
		for i, p := range parts {
			if i > 0 {
				text += "\n\n"
			}
			text += p.Text
		}
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	}

	multi := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		if p.IsBlob() {
			url := fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data))
			multi = append(multi, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url},
			})
			continue
		}
		multi = append(multi, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Text})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: multi}
}
