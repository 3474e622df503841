// Package slack connects the relay pipeline to Slack via Socket Mode.
// Direct messages and @mentions are relayed; DMs also accept the same
// slash-style text commands as the Telegram connector.
package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

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

// Connector represents the Slack Socket Mode connector.
type Connector struct {
	client     *slack.Client
	socketMode *socketmode.Client
	relay      Relay
	logger     logger.Logger
	commands   *commandHandlers
}

// Config holds configuration for the Slack connector.
type Config struct {
	BotToken string // xoxb-*
	AppToken string // xapp-*
	Debug    bool
}

// NewConnector creates a new Slack connector.
func NewConnector(config Config, relay Relay, log logger.Logger) (*Connector, error) {
	if !strings.HasPrefix(config.BotToken, "xoxb-") {
		return nil, fmt.Errorf("invalid bot token format, expected xoxb-*")
	}
	if !strings.HasPrefix(config.AppToken, "xapp-") {
		return nil, fmt.Errorf("invalid app token format, expected xapp-*")
	}
	if relay == nil {
		return nil, fmt.Errorf("relay is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := slack.New(
		config.BotToken,
		slack.OptionAppLevelToken(config.AppToken),
		slack.OptionDebug(config.Debug),
	)
	socketClient := socketmode.New(client, socketmode.OptionDebug(config.Debug))

	return &Connector{
		client:     client,
		socketMode: socketClient,
		relay:      relay,
		logger:     log.WithFields(logger.ConnectorField("slack")),
		commands:   newCommandHandlers(relay),
	}, nil
}

// Start begins the Socket Mode connection and event handling. Blocks
// until ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("Starting Slack Socket Mode connector")

	go func() {
		for envelope := range c.socketMode.Events {
			switch envelope.Type {
			case socketmode.EventTypeConnecting:
				c.logger.Debug("Connecting to Slack")

			case socketmode.EventTypeConnectionError:
				c.logger.Warn("Slack connection failed",
					logger.StringField("data", fmt.Sprintf("%v", envelope.Data)))

			case socketmode.EventTypeConnected:
				c.logger.Info("Connected to Slack")

			case socketmode.EventTypeHello:
				// WebSocket connection confirmed, nothing to do.

			case socketmode.EventTypeEventsAPI:
				event, ok := envelope.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				c.socketMode.Ack(*envelope.Request)
				c.handleEvent(ctx, event)

			default:
				c.logger.Debug("Ignoring Slack event",
					logger.StringField("type", string(envelope.Type)))
			}
		}
	}()

	return c.socketMode.RunContext(ctx)
}

// Stop gracefully stops the connector. The socket connection is closed
// by cancelling the Start context.
func (c *Connector) Stop() error {
	c.logger.Info("Stopping Slack connector")
	return nil
}

func (c *Connector) handleEvent(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		c.handleMessageEvent(ctx, ev)
	case *slackevents.AppMentionEvent:
		c.handleAppMentionEvent(ctx, ev)
	}
}

// handleMessageEvent processes direct messages to the bot.
func (c *Connector) handleMessageEvent(ctx context.Context, event *slackevents.MessageEvent) {
	// Skip messages from bots to avoid loops.
	if event.BotID != "" || event.SubType == "bot_message" {
		return
	}
	// DM channel IDs start with D.
	if !strings.HasPrefix(event.Channel, "D") {
		return
	}

	c.deliver(ctx, event.User, event.Channel, event.Text)
}

// handleAppMentionEvent processes @bot mentions in channels.
func (c *Connector) handleAppMentionEvent(ctx context.Context, event *slackevents.AppMentionEvent) {
	c.deliver(ctx, event.User, event.Channel, removeBotMention(event.Text))
}

func (c *Connector) deliver(ctx context.Context, slackUser, channel, text string) {
	userID := "slack:" + slackUser
	log := c.logger.WithFields(logger.UserField(userID))
	log.Debug("processing message",
		logger.StringField("text", validation.SanitizeForLog(text, 0)))

	if isCommand(text) {
		c.post(log, channel, c.commands.Handle(userID, text))
		return
	}

	result, err := c.relay.Handle(ctx, userID, text)
	if err != nil {
		var uerr *orchestrator.UserError
		if errors.As(err, &uerr) {
			c.post(log, channel, uerr.Message())
		} else {
			log.Error("unexpected relay failure", logger.ErrorField(err))
			c.post(log, channel, "Sorry, something went wrong. Please try again.")
		}
		return
	}

	c.post(log, channel, result.Reply)

	if result.LowQuota {
		c.post(log, channel, fmt.Sprintf("You have %d requests remaining this minute.", result.Remaining))
	}
}

func (c *Connector) post(log logger.Logger, channel, text string) {
	if text == "" {
		return
	}
	_, _, err := c.client.PostMessage(channel, slack.MsgOptionText(text, false))
	if err != nil {
		log.Error("failed to post Slack message", logger.ErrorField(err))
	}
}

// Ping verifies the bot credentials against the Slack API.
func (c *Connector) Ping(ctx context.Context) error {
	_, err := c.client.AuthTestContext(ctx)
	return err
}

// removeBotMention strips the leading <@UXXXX> mention from a message.
func removeBotMention(text string) string {
	start := strings.Index(text, "<@")
	if start == -1 {
		return text
	}
	end := strings.Index(text[start:], ">")
	if end == -1 {
		return text
	}
	return strings.TrimSpace(text[:start] + text[start+end+1:])
}
