package httpmiddleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	Logger           logger.Logger
	EnableStackTrace bool   // Whether to log full stack traces
	ResponseMessage  string // Body returned to clients on panic
}

// DefaultRecoveryConfig returns a sensible default configuration.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
		ResponseMessage:  `{"error":"Internal server error","code":"INTERNAL_ERROR"}`,
	}
}

// Recovery returns a middleware that recovers from panics, logs them and
// returns a 500 response instead of dropping the connection.
func Recovery(config RecoveryConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					handlePanic(w, r, err, config)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func handlePanic(w http.ResponseWriter, r *http.Request, panicErr interface{}, config RecoveryConfig) {
	var stackTrace string
	if config.EnableStackTrace {
		stackTrace = string(debug.Stack())
	}

	if config.Logger != nil {
		fields := []logger.LogField{
			logger.StringField("panic_error", fmt.Sprintf("%v", panicErr)),
			logger.HTTPMethodField(r.Method),
			logger.HTTPPathField(r.URL.Path),
			logger.StringField("client_ip", clientIP(r)),
			logger.CorrelationIDField(r.Header.Get("X-Correlation-ID")),
		}
		if stackTrace != "" {
			fields = append(fields, logger.StringField("stack_trace", stackTrace))
		}
		config.Logger.Error("HTTP request panic recovered", fields...)
	} else {
		fmt.Printf("PANIC: %v\nRequest: %s %s\nStack:\n%s\n",
			panicErr, r.Method, r.URL.Path, stackTrace)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusInternalServerError)
	if config.ResponseMessage != "" {
		_, _ = w.Write([]byte(config.ResponseMessage))
	}
}

// clientIP extracts the real client IP from proxy headers, falling back
// to RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the chain.
		for idx := 0; idx < len(xff); idx++ {
			if xff[idx] == ',' {
				return xff[:idx]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
