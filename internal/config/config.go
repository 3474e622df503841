// Package config defines the application configuration surface,
// loaded from YAML and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// AppConfig holds all application configuration.
type AppConfig struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"chat-relay"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	// Ops HTTP server configuration
	Port           int           `env:"PORT" yaml:"port" default:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" yaml:"request_timeout" default:"30s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`

	// Core pipeline configuration
	Limits  LimitsConfig  `yaml:"limits,inline"`
	Session SessionConfig `yaml:"session,inline"`
	LLM     LLMConfig     `yaml:"llm,inline"`

	// Provider configuration
	OpenAI    OpenAIConfig    `yaml:"openai,inline"`
	Anthropic AnthropicConfig `yaml:"anthropic,inline"`
	Gemini    GeminiConfig    `yaml:"gemini,inline"`

	// Connector configuration
	Telegram TelegramConfig `yaml:"telegram,inline"`
	Slack    SlackConfig    `yaml:"slack,inline"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,inline"`

	// Monitoring configuration
	Monitoring MonitoringConfig `yaml:"monitoring,inline"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"level" default:"info"`
	Format string `env:"LOG_FORMAT" yaml:"format" default:"json"`
}

// MonitoringConfig holds health check and metrics configuration.
type MonitoringConfig struct {
	HealthCheckTimeout     time.Duration `env:"HEALTH_CHECK_TIMEOUT" yaml:"health_check_timeout" default:"10s"`
	HealthFailureThreshold int           `env:"HEALTH_FAILURE_THRESHOLD" yaml:"health_failure_threshold" default:"3"`
	MetricsEnabled         bool          `env:"METRICS_ENABLED" yaml:"metrics_enabled" default:"true"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *AppConfig) Validate() error {
	var result error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		result = multierror.Append(result, fmt.Errorf("log_level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log_format must be either 'json' or 'text', got %q", c.Logging.Format))
	}

	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}

	if c.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("request_timeout must be greater than 0"))
	}

	if err := c.Limits.validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Session.validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.LLM.validate(); err != nil {
		result = multierror.Append(result, err)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("OPENAI_API_KEY is required when llm_provider is %q", ProviderOpenAI))
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("ANTHROPIC_API_KEY is required when llm_provider is %q", ProviderAnthropic))
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("GEMINI_API_KEY is required when llm_provider is %q", ProviderGemini))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("llm_provider must be one of [%s, %s, %s], got %q",
			ProviderOpenAI, ProviderAnthropic, ProviderGemini, c.LLM.Provider))
	}

	if !c.Telegram.Enabled() && !c.Slack.Enabled() {
		result = multierror.Append(result, fmt.Errorf("at least one connector must be configured (TELEGRAM_BOT_TOKEN or SLACK_BOT_TOKEN)"))
	}

	return result
}

// GetLogLevel returns the parsed logger level.
func (c *AppConfig) GetLogLevel() logger.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return logger.DebugLevel
	case "warn", "warning":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

// IsProduction returns true if running in production environment.
func (c *AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// LogConfig logs the current configuration without sensitive data.
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.IntField("port", c.Port),
		logger.StringField("llm_provider", c.LLM.Provider),
		logger.IntField("max_requests_per_window", c.Limits.MaxRequests),
		logger.DurationField("window", c.Limits.Window),
		logger.IntField("context_turn_limit", c.Session.TurnLimit),
		logger.DurationField("session_idle_ttl", c.Session.IdleTTL),
		logger.StringField("log_level", c.Logging.Level),
		logger.StringField("log_format", c.Logging.Format),
		logger.BoolField("telegram_enabled", c.Telegram.Enabled()),
		logger.BoolField("slack_enabled", c.Slack.Enabled()),
		logger.BoolField("metrics_enabled", c.Monitoring.MetricsEnabled),
	)
}
