// Package orchestrator ties the message pipeline together: validation,
// rate limiting, session context, the completion call with retries,
// and the session update with the generated reply.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lewisedginton/chat_relay/internal/models"
	"github.com/lewisedginton/chat_relay/internal/ratelimit"
	"github.com/lewisedginton/chat_relay/internal/session"
	"github.com/lewisedginton/chat_relay/internal/validation"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/lewisedginton/chat_relay/pkg/metrics"
)

// Defaults for the retry policy and quota notices.
const (
	DefaultRetryAttempts     = 3
	DefaultBackoffBase       = time.Second
	DefaultAttemptTimeout    = 30 * time.Second
	DefaultLowQuotaThreshold = 3
)

// Config holds orchestrator configuration.
type Config struct {
	Validator *validation.Validator
	Limiter   *ratelimit.Limiter
	Sessions  *session.Store
	Completer models.Completer
	Logger    logger.Logger
	Metrics   *metrics.Metrics // Optional

	SystemPrompt      string
	Options           models.Options
	RetryAttempts     int           // Defaults to DefaultRetryAttempts
	BackoffBase       time.Duration // Defaults to DefaultBackoffBase
	AttemptTimeout    time.Duration // Defaults to DefaultAttemptTimeout
	LowQuotaThreshold int           // Defaults to DefaultLowQuotaThreshold
}

// Result is a successful exchange.
type Result struct {
	Reply     string
	Remaining int  // Requests left in the user's rate window
	LowQuota  bool // True when Remaining is at or below the notice threshold
}

// Status describes a user's session and quota for status queries.
type Status struct {
	HasSession         bool
	TurnCount          int
	TurnLimit          int
	LastActivity       time.Time
	RateLimitRemaining int
	Provider           string
	Model              string
}

// Orchestrator handles one inbound message end to end.
type Orchestrator struct {
	validator *validation.Validator
	limiter   *ratelimit.Limiter
	sessions  *session.Store
	completer models.Completer
	logger    logger.Logger
	metrics   *metrics.Metrics

	systemPrompt      string
	options           models.Options
	retryAttempts     int
	backoffBase       time.Duration
	attemptTimeout    time.Duration
	lowQuotaThreshold int

	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator, validating required dependencies.
func New(config Config) (*Orchestrator, error) {
	if config.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if config.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if config.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if config.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	retryAttempts := config.RetryAttempts
	if retryAttempts <= 0 {
		retryAttempts = DefaultRetryAttempts
	}
	backoffBase := config.BackoffBase
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	attemptTimeout := config.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	lowQuotaThreshold := config.LowQuotaThreshold
	if lowQuotaThreshold <= 0 {
		lowQuotaThreshold = DefaultLowQuotaThreshold
	}

	return &Orchestrator{
		validator:         config.Validator,
		limiter:           config.Limiter,
		sessions:          config.Sessions,
		completer:         config.Completer,
		logger:            config.Logger,
		metrics:           config.Metrics,
		systemPrompt:      config.SystemPrompt,
		options:           config.Options,
		retryAttempts:     retryAttempts,
		backoffBase:       backoffBase,
		attemptTimeout:    attemptTimeout,
		lowQuotaThreshold: lowQuotaThreshold,
		nowFunc:           time.Now,
		sleepFunc:         sleepContext,
	}, nil
}

// Handle processes one inbound message and returns the generated reply
// or a *UserError. Invalid input costs no quota; a denied check never
// reaches the provider or mutates the session.
func (o *Orchestrator) Handle(ctx context.Context, userID, rawText string) (Result, error) {
	ctx, correlationID := logger.EnsureCorrelationID(ctx)
	log := o.logger.WithCorrelationID(correlationID).WithFields(logger.UserField(userID))

	clean, err := o.validator.Validate(rawText)
	if err != nil {
		o.observe(metrics.OutcomeInvalid)
		detail := "Message rejected"
		kind := ""
		var verr *validation.Error
		if errors.As(err, &verr) {
			detail = verr.Message
			kind = string(verr.Kind)
		}
		log.Debug("message rejected by validation",
			logger.StringField("kind", kind),
			logger.StringField("text", validation.SanitizeForLog(rawText, 0)),
		)
		return Result{}, &UserError{Kind: KindInvalidInput, Detail: detail}
	}

	now := o.nowFunc()
	decision := o.limiter.Check(userID, now)
	if !decision.Allowed {
		o.observe(metrics.OutcomeRateLimited)
		log.Info("message rate limited",
			logger.DurationField("retry_after", decision.RetryAfter))
		return Result{}, &UserError{Kind: KindRateLimited, RetryAfter: decision.RetryAfter}
	}

	o.sessions.AppendTurn(userID, session.RoleUser, clean, now)
	prompt := o.buildPrompt(userID, now)

	reply, err := o.complete(ctx, log, prompt)
	if err != nil {
		o.observe(metrics.OutcomeFailed)
		// The user turn stays in history so context survives a retry.
		return Result{}, &UserError{Kind: KindProviderUnavailable}
	}

	o.sessions.AppendTurn(userID, session.RoleAssistant, reply, o.nowFunc())
	o.observe(metrics.OutcomeReplied)

	if o.metrics != nil {
		o.metrics.SetActiveSessions(o.sessions.Stats().ActiveSessions)
	}

	return Result{
		Reply:     reply,
		Remaining: decision.Remaining,
		LowQuota:  decision.Remaining <= o.lowQuotaThreshold,
	}, nil
}

// Reset clears the user's conversation history and rate counters, so
// an explicit fresh start also restores the full request quota.
func (o *Orchestrator) Reset(userID string) {
	o.sessions.Reset(userID)
	o.limiter.Reset(userID)
}

// Describe returns the user's session and quota state.
func (o *Orchestrator) Describe(userID string) Status {
	now := o.nowFunc()
	info, ok := o.sessions.Info(userID, now)
	return Status{
		HasSession:         ok,
		TurnCount:          info.TurnCount,
		TurnLimit:          info.TurnLimit,
		LastActivity:       info.LastActivity,
		RateLimitRemaining: o.limiter.Remaining(userID, now),
		Provider:           o.completer.Name(),
		Model:              o.completer.Model(),
	}
}

// buildPrompt assembles the system preamble and the user's bounded
// context, which already includes the turn appended for this request.
func (o *Orchestrator) buildPrompt(userID string, now time.Time) []models.Message {
	turns := o.sessions.Context(userID, now)

	prompt := make([]models.Message, 0, len(turns)+1)
	if o.systemPrompt != "" {
		prompt = append(prompt, models.Message{Role: models.RoleSystem, Text: o.systemPrompt})
	}
	for _, turn := range turns {
		role := models.RoleUser
		if turn.Role == session.RoleAssistant {
			role = models.RoleAssistant
		}
		prompt = append(prompt, models.Message{Role: role, Text: turn.Text})
	}
	return prompt
}

// complete calls the provider with exponential backoff on transient
// failures. Fatal failures stop immediately; the cause is logged for
// operators and never echoed to the user.
func (o *Orchestrator) complete(ctx context.Context, log logger.Logger, prompt []models.Message) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= o.retryAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
		start := time.Now()
		reply, err := o.completer.Complete(attemptCtx, prompt, o.options)
		cancel()

		if o.metrics != nil {
			o.metrics.ObserveCompletion(time.Since(start))
		}

		if err == nil {
			return reply, nil
		}
		lastErr = err

		transient := models.IsTransient(err)
		if o.metrics != nil {
			o.metrics.ObserveProviderError(transient)
		}

		if !transient {
			log.Error("provider request failed permanently",
				logger.StringField("provider", o.completer.Name()),
				logger.IntField("attempt", attempt),
				logger.ErrorField(err),
			)
			return "", err
		}

		log.Warn("provider request failed, will retry",
			logger.StringField("provider", o.completer.Name()),
			logger.IntField("attempt", attempt),
			logger.ErrorField(err),
		)

		if attempt == o.retryAttempts {
			break
		}
		if o.metrics != nil {
			o.metrics.ObserveRetry()
		}
		backoff := o.backoffBase * time.Duration(1<<(attempt-1))
		if err := o.sleepFunc(ctx, backoff); err != nil {
			return "", err
		}
	}

	log.Error("provider retries exhausted",
		logger.StringField("provider", o.completer.Name()),
		logger.IntField("attempts", o.retryAttempts),
		logger.ErrorField(lastErr),
	)
	return "", lastErr
}

func (o *Orchestrator) observe(outcome string) {
	if o.metrics != nil {
		o.metrics.ObserveMessage(outcome)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
