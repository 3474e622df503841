package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// LimitsConfig holds rate limiting and input bounds.
type LimitsConfig struct {
	MaxRequests       int           `env:"MAX_REQUESTS_PER_WINDOW" yaml:"max_requests_per_window" default:"10"`
	Window            time.Duration `env:"RATE_LIMIT_WINDOW" yaml:"window" default:"60s"`
	MaxInputLength    int           `env:"MAX_INPUT_LENGTH" yaml:"max_input_length" default:"500"`
	LowQuotaThreshold int           `env:"LOW_QUOTA_THRESHOLD" yaml:"low_quota_threshold" default:"3"`
}

func (c *LimitsConfig) validate() error {
	var result error
	if c.MaxRequests <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_requests_per_window must be greater than 0"))
	}
	if c.Window <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate limit window must be greater than 0"))
	}
	if c.MaxInputLength <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_input_length must be greater than 0"))
	}
	return result
}
