// Package gemini implements the models.Completer interface on top of
// the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/lewisedginton/chat_relay/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Client wraps the genai SDK as a completion provider.
type Client struct {
	client    *genai.Client
	modelName string
}

// Config holds client configuration.
type Config struct {
	APIKey string
	Model  string
}

// NewClient creates a Gemini-backed completer.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	modelName := config.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Client{client: client, modelName: modelName}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return "gemini" }

// Model returns the resolved model name.
func (c *Client) Model() string { return c.modelName }

// Complete sends the prompt and returns the generated reply. Gemini
// has no assistant role; assistant turns map to the model role and
// system messages become the system instruction.
func (c *Client) Complete(ctx context.Context, messages []models.Message, opts models.Options) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(models.ClampMaxTokens(opts.MaxTokens)),
		Temperature:     genai.Ptr(float32(models.ClampTemperature(opts.Temperature))),
	}

	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(msg.Text, genai.RoleUser)
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleUser))
		}
	}

	modelName := c.modelName
	if opts.Model != "" {
		modelName = opts.Model
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", models.TransientError(errors.New("gemini returned no text content"))
	}
	return text, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return models.ClassifyStatus(apiErr.Code, err)
	}
	return models.TransientError(err)
}
