package telegram

import (
	"fmt"
	"strings"
	"time"
)

// commandHandlers implements the user-triggered maintenance commands.
type commandHandlers struct {
	relay Relay
}

func newCommandHandlers(relay Relay) *commandHandlers {
	return &commandHandlers{relay: relay}
}

// isCommand checks if a message is a bot command.
func isCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// Handle dispatches a command message and returns the reply text.
func (h *commandHandlers) Handle(userID, text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	// Strip a "@botname" suffix used in group chats.
	command, _, _ := strings.Cut(parts[0], "@")

	switch command {
	case "/start":
		return h.start(userID)
	case "/help":
		return h.help()
	case "/reset":
		return h.reset(userID)
	case "/status":
		return h.status(userID)
	default:
		return "Unknown command: " + command + "\nUse /help to see available commands."
	}
}

// start welcomes the user and begins a fresh conversation.
func (h *commandHandlers) start(userID string) string {
	h.relay.Reset(userID)
	return "Hello! I'm an AI-powered assistant.\n\n" +
		"Just send me any message and I'll respond.\n" +
		"Use /help to see all available commands."
}

func (h *commandHandlers) help() string {
	return "Available commands:\n\n" +
		"/start - Start a fresh conversation\n" +
		"/help - Show this help message\n" +
		"/reset - Clear your chat history\n" +
		"/status - Show your session and quota\n\n" +
		"Just send any message to chat. I remember your recent messages " +
		"for context; history is kept in memory only and cleared after an " +
		"hour of inactivity."
}

func (h *commandHandlers) reset(userID string) string {
	h.relay.Reset(userID)
	return "Chat history cleared. You can start a fresh conversation now."
}

func (h *commandHandlers) status(userID string) string {
	status := h.relay.Describe(userID)
	model := fmt.Sprintf("Model: %s (%s)", status.Model, status.Provider)
	if !status.HasSession {
		return fmt.Sprintf("No active session.\nRequests remaining this window: %d\n%s",
			status.RateLimitRemaining, model)
	}
	idle := time.Since(status.LastActivity).Round(time.Second)
	return fmt.Sprintf(
		"Messages in history: %d/%d\nTime since last message: %s\nRequests remaining this window: %d\n%s",
		status.TurnCount, status.TurnLimit, idle, status.RateLimitRemaining, model)
}
