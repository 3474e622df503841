// Package openai implements the models.Completer interface on top of
// the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lewisedginton/chat_relay/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Client wraps the OpenAI SDK as a completion provider.
type Client struct {
	client    openai.Client
	modelName string
}

// Config holds client configuration.
type Config struct {
	APIKey string
	Model  string
}

// NewClient creates an OpenAI-backed completer.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	modelName := config.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	return &Client{
		client:    openai.NewClient(option.WithAPIKey(config.APIKey)),
		modelName: modelName,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return "openai" }

// Model returns the resolved model name.
func (c *Client) Model() string { return c.modelName }

// Complete sends the prompt and returns the generated reply.
func (c *Client) Complete(ctx context.Context, messages []models.Message, opts models.Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       c.modelName,
		MaxTokens:   openai.Int(int64(models.ClampMaxTokens(opts.MaxTokens))),
		Temperature: openai.Float(models.ClampTemperature(opts.Temperature)),
		Messages:    buildMessages(messages),
	}
	if opts.Model != "" {
		params.Model = opts.Model
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	if len(completion.Choices) == 0 {
		return "", models.TransientError(errors.New("openai returned no choices"))
	}
	return completion.Choices[0].Message.Content, nil
}

func buildMessages(messages []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Text))
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Text))
		default:
			out = append(out, openai.UserMessage(msg.Text))
		}
	}
	return out
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return models.ClassifyStatus(apiErr.StatusCode, err)
	}
	// Network failures and timeouts have no status code.
	return models.TransientError(err)
}
