package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// SessionConfig holds conversation history bounds.
type SessionConfig struct {
	TurnLimit     int           `env:"CONTEXT_TURN_LIMIT" yaml:"context_turn_limit" default:"5"`
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" yaml:"session_idle_ttl" default:"1h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" yaml:"session_sweep_interval" default:"5m"`
}

func (c *SessionConfig) validate() error {
	var result error
	if c.TurnLimit <= 0 {
		result = multierror.Append(result, fmt.Errorf("context_turn_limit must be greater than 0"))
	}
	if c.IdleTTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("session_idle_ttl must be greater than 0"))
	}
	if c.SweepInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("session_sweep_interval must be greater than 0"))
	}
	return result
}
