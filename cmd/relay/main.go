package main

import (
	"context"
	"fmt"
	"os"

	appconfig "github.com/lewisedginton/chat_relay/internal/config"
	"github.com/lewisedginton/chat_relay/internal/server"
	"github.com/lewisedginton/chat_relay/pkg/config"
	"github.com/lewisedginton/chat_relay/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chat-relay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := &appconfig.AppConfig{}

	configPath := os.Getenv("CONFIG_FILE")
	if configPath != "" {
		if err := config.Load(cfg, configPath, false); err != nil {
			return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
		}
	} else {
		if err := config.LoadFromEnv(cfg); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	log := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.Logging.Format,
		Service: cfg.ServiceName,
	})

	cfg.LogConfig(log)

	srv, err := server.New(context.Background(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	log.Info("Starting chat relay",
		logger.StringField("version", cfg.Version),
		logger.StringField("environment", cfg.Environment),
	)

	return srv.Run()
}
