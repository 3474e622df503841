package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/lewisedginton/chat_relay/pkg/config"
	"github.com/lewisedginton/chat_relay/pkg/logger"
)

func validConfig() AppConfig {
	return AppConfig{
		ServiceName:    "chat-relay",
		Version:        "dev",
		Environment:    "development",
		Port:           8080,
		RequestTimeout: 30 * time.Second,
		IdleTimeout:    60 * time.Second,
		Limits: LimitsConfig{
			MaxRequests:       10,
			Window:            time.Minute,
			MaxInputLength:    500,
			LowQuotaThreshold: 3,
		},
		Session: SessionConfig{
			TurnLimit:     5,
			IdleTTL:       time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			SystemPrompt:   "You are a helpful assistant.",
			MaxTokens:      512,
			Temperature:    0.7,
			RetryAttempts:  3,
			BackoffBase:    time.Second,
			AttemptTimeout: 30 * time.Second,
		},
		OpenAI:   OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
		Telegram: TelegramConfig{BotToken: "123:abc"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Monitoring: MonitoringConfig{
			HealthCheckTimeout:     10 * time.Second,
			HealthFailureThreshold: 3,
			MetricsEnabled:         true,
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	c := validConfig()
	assert.NoError(t, c.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantMsg string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *AppConfig) { c.Logging.Level = "verbose" },
			wantMsg: "log_level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *AppConfig) { c.Logging.Format = "xml" },
			wantMsg: "log_format",
		},
		{
			name:    "bad port",
			mutate:  func(c *AppConfig) { c.Port = 0 },
			wantMsg: "port",
		},
		{
			name:    "zero max requests",
			mutate:  func(c *AppConfig) { c.Limits.MaxRequests = 0 },
			wantMsg: "max_requests_per_window",
		},
		{
			name:    "zero window",
			mutate:  func(c *AppConfig) { c.Limits.Window = 0 },
			wantMsg: "window",
		},
		{
			name:    "zero turn limit",
			mutate:  func(c *AppConfig) { c.Session.TurnLimit = 0 },
			wantMsg: "context_turn_limit",
		},
		{
			name:    "max tokens out of range",
			mutate:  func(c *AppConfig) { c.LLM.MaxTokens = 5000 },
			wantMsg: "max_tokens",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *AppConfig) { c.LLM.Temperature = 1.5 },
			wantMsg: "temperature",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *AppConfig) { c.LLM.Provider = "llama" },
			wantMsg: "llm_provider",
		},
		{
			name: "missing provider key",
			mutate: func(c *AppConfig) {
				c.LLM.Provider = ProviderAnthropic
				c.Anthropic.APIKey = ""
			},
			wantMsg: "ANTHROPIC_API_KEY",
		},
		{
			name: "no connector",
			mutate: func(c *AppConfig) {
				c.Telegram = TelegramConfig{}
				c.Slack = SlackConfig{}
			},
			wantMsg: "at least one connector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	c := validConfig()
	c.Port = 0
	c.Logging.Level = "bogus"
	c.Limits.MaxRequests = -1

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "max_requests_per_window")
}

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	var c AppConfig
	require.NoError(t, pkgconfig.LoadFromEnv(&c))

	assert.Equal(t, "chat-relay", c.ServiceName)
	assert.Equal(t, 10, c.Limits.MaxRequests)
	assert.Equal(t, 60*time.Second, c.Limits.Window)
	assert.Equal(t, 500, c.Limits.MaxInputLength)
	assert.Equal(t, 5, c.Session.TurnLimit)
	assert.Equal(t, time.Hour, c.Session.IdleTTL)
	assert.Equal(t, 512, c.LLM.MaxTokens)
	assert.Equal(t, 0.7, c.LLM.Temperature)
	assert.Equal(t, 3, c.LLM.RetryAttempts)
	assert.Equal(t, ProviderOpenAI, c.LLM.Provider)
	assert.True(t, c.Telegram.Enabled())
	assert.False(t, c.Slack.Enabled())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("MAX_REQUESTS_PER_WINDOW", "20")
	t.Setenv("RATE_LIMIT_WINDOW", "2m")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LOG_LEVEL", "debug")

	var c AppConfig
	require.NoError(t, pkgconfig.LoadFromEnv(&c))

	assert.Equal(t, 20, c.Limits.MaxRequests)
	assert.Equal(t, 2*time.Minute, c.Limits.Window)
	assert.Equal(t, 0.2, c.LLM.Temperature)
	assert.Equal(t, logger.DebugLevel, c.GetLogLevel())
}

func TestLoadFromEnvRunsValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("LLM_MAX_TOKENS", "9999")

	var c AppConfig
	err := pkgconfig.LoadFromEnv(&c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestGetLogLevel(t *testing.T) {
	c := validConfig()
	tests := []struct {
		level string
		want  logger.Level
	}{
		{"debug", logger.DebugLevel},
		{"info", logger.InfoLevel},
		{"warn", logger.WarnLevel},
		{"warning", logger.WarnLevel},
		{"error", logger.ErrorLevel},
		{"unknown", logger.InfoLevel},
	}
	for _, tt := range tests {
		c.Logging.Level = tt.level
		assert.Equal(t, tt.want, c.GetLogLevel(), tt.level)
	}
}

func TestIsProduction(t *testing.T) {
	c := validConfig()
	assert.False(t, c.IsProduction())
	c.Environment = "Production"
	assert.True(t, c.IsProduction())
}
