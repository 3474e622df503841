// Package telegram connects the relay pipeline to Telegram via long
// polling.
package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/lewisedginton/chat_relay/internal/orchestrator"
	"github.com/lewisedginton/chat_relay/internal/validation"
	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// Relay is the message pipeline the connector delivers into.
type Relay interface {
	Handle(ctx context.Context, userID, text string) (orchestrator.Result, error)
	Reset(userID string)
	Describe(userID string) orchestrator.Status
}

// Connector represents the Telegram connector.
type Connector struct {
	bot      *bot.Bot
	relay    Relay
	logger   logger.Logger
	commands *commandHandlers
}

// Config holds configuration for the Telegram connector.
type Config struct {
	BotToken string // Bot token from @BotFather
	Debug    bool   // Enable debug logging
}

// NewConnector creates a new Telegram connector.
func NewConnector(config Config, relay Relay, log logger.Logger) (*Connector, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if relay == nil {
		return nil, fmt.Errorf("relay is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	connector := &Connector{
		relay:    relay,
		logger:   log.WithFields(logger.ConnectorField("telegram")),
		commands: newCommandHandlers(relay),
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(connector.handleUpdate),
	}
	if config.Debug {
		opts = append(opts, bot.WithDebug())
	}

	b, err := bot.New(config.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	connector.bot = b

	connector.logger.Info("Telegram bot initialized")
	return connector, nil
}

// Start begins polling for updates. Blocks until ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("Starting Telegram polling")
	c.bot.Start(ctx)
	return nil
}

// Stop gracefully stops the connector. Polling itself is stopped by
// cancelling the Start context.
func (c *Connector) Stop() error {
	c.logger.Info("Stopping Telegram connector")
	return nil
}

// handleUpdate processes all incoming Telegram updates.
func (c *Connector) handleUpdate(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if update.Message.From == nil || update.Message.From.IsBot {
		return
	}

	userID := fmt.Sprintf("telegram:%d", update.Message.From.ID)
	chatID := update.Message.Chat.ID
	text := update.Message.Text

	log := c.logger.WithFields(logger.UserField(userID))
	log.Debug("processing message",
		logger.StringField("text", validation.SanitizeForLog(text, 0)))

	if isCommand(text) {
		reply := c.commands.Handle(userID, text)
		c.send(ctx, log, chatID, reply, false)
		return
	}

	// Show the typing indicator while the completion is in flight.
	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: tgmodels.ChatActionTyping,
	})

	result, err := c.relay.Handle(ctx, userID, text)
	if err != nil {
		var uerr *orchestrator.UserError
		if errors.As(err, &uerr) {
			c.send(ctx, log, chatID, uerr.Message(), false)
		} else {
			log.Error("unexpected relay failure", logger.ErrorField(err))
			c.send(ctx, log, chatID, "Sorry, something went wrong. Please try again.", false)
		}
		return
	}

	c.send(ctx, log, chatID, result.Reply, false)

	if result.LowQuota {
		notice := fmt.Sprintf("You have %d requests remaining this minute.", result.Remaining)
		c.send(ctx, log, chatID, notice, true)
	}
}

func (c *Connector) send(ctx context.Context, log logger.Logger, chatID int64, text string, quiet bool) {
	if text == "" {
		return
	}
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:              chatID,
		Text:                text,
		DisableNotification: quiet,
	})
	if err != nil {
		log.Error("failed to send Telegram message", logger.ErrorField(err))
	}
}

// GetBotInfo returns information about the bot account.
func (c *Connector) GetBotInfo(ctx context.Context) (*tgmodels.User, error) {
	return c.bot.GetMe(ctx)
}
