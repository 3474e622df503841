// Package models defines the completion provider abstraction shared by
// the concrete OpenAI, Anthropic and Gemini clients.
package models

import (
	"context"
	"errors"
	"fmt"
)

// Token and temperature bounds for completion requests.
const (
	MinMaxTokens     = 50
	MaxMaxTokens     = 2000
	DefaultMaxTokens = 512

	MinTemperature     = 0.0
	MaxTemperature     = 1.0
	DefaultTemperature = 0.7
)

// Role identifies the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the prompt sent to a provider.
type Message struct {
	Role Role
	Text string
}

// Options carries per-request generation settings. Zero values fall
// back to provider defaults via the clamp helpers.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Completer is a single-shot completion provider.
type Completer interface {
	// Name returns the provider name for logging and metrics.
	Name() string

	// Model returns the resolved model name requests are sent to.
	Model() string

	// Complete sends the ordered prompt and returns the generated
	// reply text. Failures are reported as *Error so callers can
	// distinguish transient from fatal causes.
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// ErrorClass splits provider failures into retryable and terminal.
type ErrorClass string

const (
	// ClassTransient failures may succeed on retry (timeouts,
	// overload, 5xx responses).
	ClassTransient ErrorClass = "transient"
	// ClassFatal failures will not succeed without intervention
	// (bad credentials, malformed request).
	ClassFatal ErrorClass = "fatal"
)

// Error wraps a provider failure with its retry classification.
type Error struct {
	Class ErrorClass
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// TransientError wraps err as a retryable provider failure.
func TransientError(err error) *Error {
	return &Error{Class: ClassTransient, Err: err}
}

// FatalError wraps err as a non-retryable provider failure.
func FatalError(err error) *Error {
	return &Error{Class: ClassFatal, Err: err}
}

// IsTransient reports whether err is a provider error worth retrying.
// Unclassified errors are treated as transient so a plain network
// failure still gets its retries.
func IsTransient(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Class == ClassTransient
	}
	return true
}

// ClassifyStatus maps an HTTP status code from a provider API to an
// error class. Timeouts, conflicts, rate limits and server errors are
// transient; every other client error is fatal.
func ClassifyStatus(statusCode int, err error) *Error {
	switch {
	case statusCode == 408, statusCode == 409, statusCode == 429, statusCode >= 500:
		return TransientError(err)
	default:
		return FatalError(err)
	}
}

// ClampMaxTokens bounds v to the accepted token range, substituting
// the default when unset.
func ClampMaxTokens(v int) int {
	if v <= 0 {
		return DefaultMaxTokens
	}
	if v < MinMaxTokens {
		return MinMaxTokens
	}
	if v > MaxMaxTokens {
		return MaxMaxTokens
	}
	return v
}

// ClampTemperature bounds v to [0, 1]. A negative value selects the
// default; zero is a valid explicit choice.
func ClampTemperature(v float64) float64 {
	if v < MinTemperature {
		return DefaultTemperature
	}
	if v > MaxTemperature {
		return MaxTemperature
	}
	return v
}
