package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// AI providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// AIModels defines which model to use for each task
type AIModels struct {
	// Draft generates a whole survey in one call (quality over speed)
	Draft string `yaml:"draft"`

	// Interview phrases acknowledgements and the next question (needs to be fast)
	Interview string `yaml:"interview"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"-"` // Never read from or written to files
	BaseURL  string        `yaml:"base_url"`
	Models   AIModels      `yaml:"models"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Provider: ProviderGemini,
		Models: AIModels{
			Draft:     "gemini-2.0-flash",
			Interview: "gemini-2.0-flash",
		},
		Timeout: 60 * time.Second,
	}
}

func (c *AIConfig) applyEnv() {
	c.Provider = strings.ToLower(getEnv("AI_PROVIDER", c.Provider))
	c.Timeout = getDurationEnv("AI_TIMEOUT", c.Timeout)

	switch c.Provider {
	case ProviderOpenAI:
		c.APIKey = os.Getenv("OPENAI_API_KEY")
		c.BaseURL = getEnv("OPENAI_BASE_URL", c.BaseURL)
		if strings.HasPrefix(c.Models.Draft, "gemini") {
			c.Models.Draft = "gpt-4o-mini"
		}
		if strings.HasPrefix(c.Models.Interview, "gemini") {
			c.Models.Interview = "gpt-4o-mini"
		}
		c.Models.Draft = getEnv("OPENAI_MODEL_DRAFT", c.Models.Draft)
		c.Models.Interview = getEnv("OPENAI_MODEL_INTERVIEW", c.Models.Interview)
	default:
		c.APIKey = os.Getenv("GEMINI_API_KEY")
		c.Models.Draft = getEnv("GEMINI_MODEL_DRAFT", c.Models.Draft)
		c.Models.Interview = getEnv("GEMINI_MODEL_INTERVIEW", c.Models.Interview)
	}
}

func (c *AIConfig) validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
		return nil
	default:
		return fmt.Errorf("unsupported AI provider %q, use %q or %q", c.Provider, ProviderGemini, ProviderOpenAI)
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}
