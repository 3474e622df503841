package slack

import (
	"fmt"
	"strings"
	"time"
)

type commandHandlers struct {
	relay Relay
}

func newCommandHandlers(relay Relay) *commandHandlers {
	return &commandHandlers{relay: relay}
}

func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// Handle dispatches a command message and returns the reply text.
func (h *commandHandlers) Handle(userID, text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)

	switch parts[0] {
	case "/help":
		return "Available commands:\n" +
			"/help - Show this help message\n" +
			"/reset - Clear your chat history\n" +
			"/status - Show your session and quota\n\n" +
			"Send any other message to chat."
	case "/reset":
		h.relay.Reset(userID)
		return "Chat history cleared. You can start a fresh conversation now."
	case "/status":
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
	default:
		return "Unknown command: " + parts[0] + "\nUse /help to see available commands."
	}
}
