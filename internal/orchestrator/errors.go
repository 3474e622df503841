package orchestrator

import (
	"fmt"
	"time"
)

// ErrorKind classifies user-facing failures.
type ErrorKind string

const (
	KindInvalidInput        ErrorKind = "invalid_input"
	KindRateLimited         ErrorKind = "rate_limited"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
)

// UserError is a failure safe to surface to the end user. Detail never
// contains provider internals or raw error text.
type UserError struct {
	Kind       ErrorKind
	Detail     string
	RetryAfter time.Duration
}

func (e *UserError) Error() string {
	return fmt.Sprintf("user-facing error (%s): %s", e.Kind, e.Detail)
}

// Message returns the short, non-technical text to send back to the
// user for this failure.
func (e *UserError) Message() string {
	switch e.Kind {
	case KindInvalidInput:
		return fmt.Sprintf("Invalid message: %s", e.Detail)
	case KindRateLimited:
		seconds := int(e.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		return fmt.Sprintf("Rate limit exceeded. Please wait %d seconds before sending another message.", seconds)
	case KindProviderUnavailable:
		return "Sorry, I could not generate a reply right now. Please try again in a moment."
	default:
		return "Something went wrong. Please try again."
	}
}
