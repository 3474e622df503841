package validation

import (
	"regexp"
	"unicode/utf8"
)

// DefaultLogLength caps how much user text is echoed into log entries.
const DefaultLogLength = 100

var (
	apiKeyPattern   = regexp.MustCompile(`sk-[a-zA-Z0-9-_]+`)
	longNumPattern  = regexp.MustCompile(`\b\d{10,}\b`)
	passwordPattern = regexp.MustCompile(`(?i)password[:\s=]+\S+`)
)

// SanitizeForLog redacts credential-shaped substrings and truncates the
// text so raw user input never lands verbatim in log output.
func SanitizeForLog(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultLogLength
	}

	sanitized := apiKeyPattern.ReplaceAllString(text, "[REDACTED_API_KEY]")
	sanitized = longNumPattern.ReplaceAllString(sanitized, "[REDACTED_NUMBER]")
	sanitized = passwordPattern.ReplaceAllString(sanitized, "password:[REDACTED]")

	if len(sanitized) > maxLength {
		cut := maxLength
		// Back up to a rune boundary so truncation never emits
		// invalid UTF-8.
		for cut > 0 && !utf8.RuneStart(sanitized[cut]) {
			cut--
		}
		sanitized = sanitized[:cut] + "..."
	}
	return sanitized
}
