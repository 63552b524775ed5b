package ai

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/imsebeom/ai-survey/internal/config"
	"github.com/imsebeom/ai-survey/internal/model"
)

// Task selects which configured model serves a call
type Task string

const (
	TaskDraft     Task = "draft"
	TaskInterview Task = "interview"
)

// Part is one piece of a prompt: text, or inline binary data such as an image
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// Text builds a text part
func Text(s string) Part {
	return Part{Text: s}
}

// Image builds an inline image part
func Image(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsBlob reports whether the part carries binary data
func (p Part) IsBlob() bool {
	return len(p.Data) > 0
}

// Generator maps a prompt to natural-language text. It can fail; callers do not retry.
type Generator interface {
	Generate(ctx context.Context, task Task, parts ...Part) (string, error)
}

// New returns the generator for the configured provider. Without credentials it
// returns a generator that fails every call with model.ErrConfiguration.
func New(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	if !cfg.IsEnabled() {
		return disabled{provider: cfg.Provider}, nil
	}

	var gen Generator
	switch cfg.Provider {
	case config.ProviderOpenAI:
		gen = NewOpenAIGenerator(cfg)
	case config.ProviderGemini:
		g, err := NewGeminiGenerator(ctx, cfg)
		if err != nil {
			return nil, err
		}
		gen = g
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}

	if cfg.Timeout > 0 {
		gen = withTimeout{next: gen, timeout: cfg.Timeout}
	}
	return gen, nil
}

// modelFor picks the model configured for a task
func modelFor(models config.AIModels, task Task) string {
	if task == TaskInterview {
		return models.Interview
	}
	return models.Draft
}

// Ready returns the configuration error of a generator built without credentials, nil otherwise
func Ready(g Generator) error {
	if d, ok := g.(disabled); ok {
		_, err := d.Generate(context.Background(), TaskDraft)
		return err
	}
	return nil
}

// Close releases the client behind g, if it holds one
func Close(g Generator) error {
	if w, ok := g.(withTimeout); ok {
		g = w.next
	}
	if c, ok := g.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type disabled struct {
	provider string
}

func (d disabled) Generate(ctx context.Context, task Task, parts ...Part) (string, error) {
	return "", fmt.Errorf("%w: API key for AI provider %q is not set", model.ErrConfiguration, d.provider)
}

type withTimeout struct {
	next    Generator
	timeout time.Duration
}

func (w withTimeout) Generate(ctx context.Context, task Task, parts ...Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.next.Generate(ctx, task, parts...)
}
