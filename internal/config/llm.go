package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// LLM provider constants.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// LLMConfig holds provider selection and generation settings.
type LLMConfig struct {
	// Provider specifies which completion provider to use:
	// "openai", "anthropic", or "gemini".
	Provider     string  `env:"LLM_PROVIDER" yaml:"provider" default:"openai"`
	SystemPrompt string  `env:"SYSTEM_PROMPT" yaml:"system_prompt" default:"You are a helpful assistant. Keep replies concise."`
	MaxTokens    int     `env:"LLM_MAX_TOKENS" yaml:"max_tokens" default:"512"`
	Temperature  float64 `env:"LLM_TEMPERATURE" yaml:"temperature" default:"0.7"`

	RetryAttempts  int           `env:"LLM_RETRY_ATTEMPTS" yaml:"retry_attempts" default:"3"`
	BackoffBase    time.Duration `env:"LLM_RETRY_BACKOFF" yaml:"retry_backoff" default:"1s"`
	AttemptTimeout time.Duration `env:"LLM_TIMEOUT" yaml:"timeout" default:"30s"`
}

func (c *LLMConfig) validate() error {
	var result error
	if c.MaxTokens < 50 || c.MaxTokens > 2000 {
		result = multierror.Append(result, fmt.Errorf("max_tokens must be between 50 and 2000, got %d", c.MaxTokens))
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		result = multierror.Append(result, fmt.Errorf("temperature must be between 0.0 and 1.0, got %v", c.Temperature))
	}
	if c.RetryAttempts <= 0 {
		result = multierror.Append(result, fmt.Errorf("retry_attempts must be greater than 0"))
	}
	if c.BackoffBase <= 0 {
		result = multierror.Append(result, fmt.Errorf("retry_backoff must be greater than 0"))
	}
	if c.AttemptTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("llm timeout must be greater than 0"))
	}
	return result
}

// OpenAIConfig holds OpenAI provider configuration.
type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY" yaml:"api_key"`
	Model  string `env:"OPENAI_MODEL" yaml:"model" default:"gpt-4o-mini"`
}

// AnthropicConfig holds Anthropic provider configuration.
type AnthropicConfig struct {
	APIKey string `env:"ANTHROPIC_API_KEY" yaml:"api_key"`
	Model  string `env:"ANTHROPIC_MODEL" yaml:"model"`
}

// GeminiConfig holds Gemini provider configuration.
type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY" yaml:"api_key"`
	Model  string `env:"GEMINI_MODEL" yaml:"model" default:"gemini-2.0-flash"`
}
