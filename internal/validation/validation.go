// Package validation screens inbound message text before it reaches
// any stateful component. Validation is pure: no mutation, no I/O.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the maximum accepted message length in characters.
const DefaultMaxLength = 500

// ErrorKind classifies why a message was rejected.
type ErrorKind string

const (
	KindEmpty             ErrorKind = "empty"
	KindTooLong           ErrorKind = "too_long"
	KindSuspiciousContent ErrorKind = "suspicious_content"
)

// Error is returned when a message fails validation. The message is
// safe to surface to the end user.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Message)
}

// Patterns that indicate markup or injection payloads. Matching input
// is rejected outright rather than stripped, so benign text is never
// silently altered.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)DROP\s+TABLE`),
	regexp.MustCompile(`(?i)DELETE\s+FROM`),
	regexp.MustCompile(`(?i)INSERT\s+INTO`),
	regexp.MustCompile(`(?i)UPDATE\s+\w+\s+SET`),
	regexp.MustCompile(`(?i);.*rm\s+-rf`),
	regexp.MustCompile(`(?i)&&.*rm\s+-rf`),
	regexp.MustCompile(`(?i)\|\|.*rm\s+-rf`),
}

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	commandPattern = regexp.MustCompile(`^/[a-z_]+$`)
)

// Validator checks and cleans raw user input.
type Validator struct {
	maxLength int
}

// Config holds validator configuration.
type Config struct {
	MaxLength int // Maximum message length; defaults to DefaultMaxLength
}

// NewValidator creates a Validator from the given configuration.
func NewValidator(config Config) *Validator {
	maxLength := config.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Validator{maxLength: maxLength}
}

// Validate checks raw input and returns the cleaned text, or an *Error
// describing why it was rejected. Leading and trailing whitespace is
// trimmed and residual HTML tags are stripped from accepted text.
func (v *Validator) Validate(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)

	if cleaned == "" {
		return "", &Error{Kind: KindEmpty, Message: "Message cannot be empty"}
	}

	// The limit is in characters, not bytes, so multibyte scripts get
	// the full allowance.
	if utf8.RuneCountInString(cleaned) > v.maxLength {
		return "", &Error{
			Kind:    KindTooLong,
			Message: fmt.Sprintf("Message too long (max %d characters)", v.maxLength),
		}
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(cleaned) {
			return "", &Error{
				Kind:    KindSuspiciousContent,
				Message: "Message contains potentially dangerous content",
			}
		}
	}

	cleaned = strings.TrimSpace(htmlTagPattern.ReplaceAllString(cleaned, ""))
	if cleaned == "" {
		return "", &Error{Kind: KindEmpty, Message: "Message cannot be empty"}
	}

	return cleaned, nil
}

// MaxLength returns the configured maximum message length.
func (v *Validator) MaxLength() int { return v.maxLength }

// ValidCommand reports whether a command string has the expected
// /lowercase_name form.
func ValidCommand(command string) bool {
	return commandPattern.MatchString(command)
}
