// Package server wires the relay components together and manages the
// process lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	appconfig "github.com/lewisedginton/chat_relay/internal/config"
	"github.com/lewisedginton/chat_relay/internal/connectors/slack"
	"github.com/lewisedginton/chat_relay/internal/connectors/telegram"
	"github.com/lewisedginton/chat_relay/internal/models"
	"github.com/lewisedginton/chat_relay/internal/models/anthropic"
	"github.com/lewisedginton/chat_relay/internal/models/gemini"
	"github.com/lewisedginton/chat_relay/internal/models/openai"
	"github.com/lewisedginton/chat_relay/internal/orchestrator"
	"github.com/lewisedginton/chat_relay/internal/ratelimit"
	"github.com/lewisedginton/chat_relay/internal/session"
	"github.com/lewisedginton/chat_relay/internal/validation"
	"github.com/lewisedginton/chat_relay/pkg/health"
	"github.com/lewisedginton/chat_relay/pkg/httpmiddleware"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/lewisedginton/chat_relay/pkg/metrics"
)

// Connector defines the interface for platform connectors.
type Connector interface {
	Start(ctx context.Context) error
	Stop() error
}

// Server encapsulates all relay components and lifecycle management.
type Server struct {
	cfg     *appconfig.AppConfig
	log     logger.Logger
	metrics *metrics.Metrics
	health  *health.Checker

	limiter      *ratelimit.Limiter
	sessions     *session.Store
	orchestrator *orchestrator.Orchestrator

	telegramConnector *telegram.Connector
	slackConnector    *slack.Connector

	cancel context.CancelFunc
}

// New creates a Server instance with all components initialized.
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
	}

	validator := validation.NewValidator(validation.Config{
		MaxLength: cfg.Limits.MaxInputLength,
	})

	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		MaxRequests: cfg.Limits.MaxRequests,
		Window:      cfg.Limits.Window,
	})

	s.sessions = session.NewStore(session.Config{
		TurnLimit: cfg.Session.TurnLimit,
		IdleTTL:   cfg.Session.IdleTTL,
	})

	completer, err := s.createCompleter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion provider: %w", err)
	}

	s.orchestrator, err = orchestrator.New(orchestrator.Config{
		Validator: validator,
		Limiter:   s.limiter,
		Sessions:  s.sessions,
		Completer: completer,
		Logger:    log,
		Metrics:   s.metrics,

		SystemPrompt: cfg.LLM.SystemPrompt,
		Options: models.Options{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		},
		RetryAttempts:     cfg.LLM.RetryAttempts,
		BackoffBase:       cfg.LLM.BackoffBase,
		AttemptTimeout:    cfg.LLM.AttemptTimeout,
		LowQuotaThreshold: cfg.Limits.LowQuotaThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if cfg.Telegram.Enabled() {
		s.telegramConnector, err = telegram.NewConnector(telegram.Config{
			BotToken: cfg.Telegram.BotToken,
			Debug:    cfg.Telegram.Debug,
		}, s.orchestrator, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Telegram connector: %w", err)
		}
	}

	if cfg.Slack.Enabled() {
		s.slackConnector, err = slack.NewConnector(slack.Config{
			BotToken: cfg.Slack.BotToken,
			AppToken: cfg.Slack.AppToken,
			Debug:    cfg.Slack.Debug,
		}, s.orchestrator, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Slack connector: %w", err)
		}
	}

	s.health = s.createHealthChecker()

	return s, nil
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer cancel()

	s.setupGracefulShutdown()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.runOpsServer(ctx); err != nil {
			s.log.Error("Ops server failed", logger.ErrorField(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runSweeper(ctx)
	}()

	enabledCount := 0

	if s.telegramConnector != nil {
		enabledCount++
		wg.Add(1)
		go func() {
			defer wg.Done()

			botInfo, err := s.telegramConnector.GetBotInfo(ctx)
			if err != nil {
				s.log.Warn("Failed to get Telegram bot info", logger.ErrorField(err))
			} else {
				s.log.Info("Telegram bot connected",
					logger.StringField("bot_username", botInfo.Username))
			}

			if err := s.telegramConnector.Start(ctx); err != nil {
				s.log.Error("Telegram connector error", logger.ErrorField(err))
				cancel()
			}
		}()
	} else {
		s.log.Info("Telegram connector disabled (missing TELEGRAM_BOT_TOKEN)")
	}

	if s.slackConnector != nil {
		enabledCount++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.slackConnector.Start(ctx); err != nil {
				s.log.Error("Slack connector error", logger.ErrorField(err))
				cancel()
			}
		}()
	} else {
		s.log.Info("Slack connector disabled (missing SLACK_BOT_TOKEN or SLACK_APP_TOKEN)")
	}

	if enabledCount == 0 {
		return fmt.Errorf("no connectors configured: set TELEGRAM_BOT_TOKEN or SLACK_BOT_TOKEN/SLACK_APP_TOKEN")
	}

	s.log.Info("All enabled connectors started", logger.IntField("count", enabledCount))

	wg.Wait()
	s.log.Info("All connectors stopped")
	return nil
}

// runOpsServer serves health checks and metrics until ctx is cancelled.
func (s *Server) runOpsServer(ctx context.Context) error {
	router := chi.NewRouter()

	middlewareConfig := httpmiddleware.DefaultConfig()
	middlewareConfig.Logger = s.log
	middlewareConfig.EnableLogging = true
	middlewareConfig.Timeout = s.cfg.RequestTimeout
	httpmiddleware.ApplyToRouter(router, middlewareConfig)
	router.Use(s.metrics.HTTPMiddleware())

	router.Get("/health", s.health.ReadinessHandler())
	router.Get("/health/live", s.health.LivenessHandler())
	router.Get("/health/ready", s.health.ReadinessHandler())
	if s.cfg.Monitoring.MetricsEnabled {
		router.Handle("/metrics", s.metrics.Handler())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	go func() {
		s.log.Info("Ops server listening", logger.IntField("port", s.cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("Ops server failed", logger.ErrorField(err))
		}
	}()

	<-ctx.Done()
	s.log.Info("Shutting down ops server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runSweeper periodically evicts expired sessions and idle rate
// counters. Both structures also expire lazily; the sweep bounds
// memory held for users that never return.
func (s *Server) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Session.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			removedSessions := s.sessions.Sweep(now)
			removedCounters := s.limiter.Sweep(now)
			s.metrics.SetActiveSessions(s.sessions.Stats().ActiveSessions)

			if removedSessions > 0 || removedCounters > 0 {
				s.log.Debug("Sweep completed",
					logger.IntField("expired_sessions", removedSessions),
					logger.IntField("idle_rate_counters", removedCounters),
				)
			}
		}
	}
}

// createHealthChecker builds the health checker with connector probes.
func (s *Server) createHealthChecker() *health.Checker {
	checker := health.New(
		health.WithTimeout(s.cfg.Monitoring.HealthCheckTimeout),
		health.WithFailureThreshold(s.cfg.Monitoring.HealthFailureThreshold),
		health.WithLogger(s.log),
	)

	checker.AddLivenessCheck(health.NewCheckFunc("process", func(context.Context) error {
		return nil
	}))

	if s.telegramConnector != nil {
		checker.AddReadinessCheck(health.NewCheckFunc("telegram", func(ctx context.Context) error {
			_, err := s.telegramConnector.GetBotInfo(ctx)
			return err
		}))
	}
	if s.slackConnector != nil {
		checker.AddReadinessCheck(health.NewCheckFunc("slack", func(ctx context.Context) error {
			return s.slackConnector.Ping(ctx)
		}))
	}

	return checker
}

// createCompleter creates a completion provider from the configured
// LLM provider.
func (s *Server) createCompleter(ctx context.Context) (models.Completer, error) {
	provider := strings.ToLower(s.cfg.LLM.Provider)

	switch provider {
	case appconfig.ProviderOpenAI:
		s.log.Info("Initializing OpenAI provider",
			logger.StringField("model", s.cfg.OpenAI.Model))
		return openai.NewClient(openai.Config{
			APIKey: s.cfg.OpenAI.APIKey,
			Model:  s.cfg.OpenAI.Model,
		})

	case appconfig.ProviderAnthropic:
		s.log.Info("Initializing Anthropic provider",
			logger.StringField("model", s.cfg.Anthropic.Model))
		return anthropic.NewClient(anthropic.Config{
			APIKey: s.cfg.Anthropic.APIKey,
			Model:  s.cfg.Anthropic.Model,
		})

	case appconfig.ProviderGemini:
		s.log.Info("Initializing Gemini provider",
			logger.StringField("model", s.cfg.Gemini.Model))
		return gemini.NewClient(ctx, gemini.Config{
			APIKey: s.cfg.Gemini.APIKey,
			Model:  s.cfg.Gemini.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// setupGracefulShutdown sets up signal handling for graceful shutdown.
func (s *Server) setupGracefulShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		s.log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))

		if s.cancel != nil {
			s.cancel()
		}

		// Give connectors time to drain, then force exit.
		time.AfterFunc(30*time.Second, func() {
			s.log.Warn("Force exiting due to timeout")
			os.Exit(1)
		})
	}()
}
