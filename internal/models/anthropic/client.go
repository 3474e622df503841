// Package anthropic implements the models.Completer interface on top
// of the Anthropic messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lewisedginton/chat_relay/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_5_20250929)

// Client wraps the Anthropic SDK as a completion provider.
type Client struct {
	client    anthropic.Client
	modelName string
}

// Config holds client configuration.
type Config struct {
	APIKey string
	Model  string
}

// NewClient creates an Anthropic-backed completer.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	modelName := config.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		modelName: modelName,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return "anthropic" }

// Model returns the resolved model name.
func (c *Client) Model() string { return c.modelName }

// Complete sends the prompt and returns the generated reply. System
// messages are lifted into the dedicated system field; the remaining
// turns become the message list.
func (c *Client) Complete(ctx context.Context, messages []models.Message, opts models.Options) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.modelName),
		MaxTokens:   int64(models.ClampMaxTokens(opts.MaxTokens)),
		Temperature: anthropic.Float(models.ClampTemperature(opts.Temperature)),
	}
	if opts.Model != "" {
		params.Model = anthropic.Model(opts.Model)
	}

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Text})
		case models.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text)))
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", models.TransientError(errors.New("anthropic returned no text content"))
	}
	return out.String(), nil
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return models.ClassifyStatus(apiErr.StatusCode, err)
	}
	return models.TransientError(err)
}
