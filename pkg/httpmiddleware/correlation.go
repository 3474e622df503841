// Package httpmiddleware provides chi-compatible middleware for the
// relay's operational HTTP surface.
package httpmiddleware

import (
	"net/http"

	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// CorrelationID returns middleware that ensures every request carries a
// correlation ID header and context value, generating one when absent.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, id := logger.EnsureHTTPCorrelationID(r)
			w.Header().Set("X-Correlation-ID", id)
			next.ServeHTTP(w, r)
		})
	}
}
