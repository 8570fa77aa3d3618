package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nregsmp/nregsreport/internal/model"
)

// AnthropicClient calls the Anthropic Messages API through the official SDK.
type AnthropicClient struct {
	settings Settings
	client   anthropic.Client
}

// NewAnthropicClient creates a Messages API client.
// BaseURL may be given with or without the trailing /v1 path.
func NewAnthropicClient(s Settings, opts ...ClientOption) (*AnthropicClient, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}

	o := resolveClientOptions(opts)
	reqOpts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithHTTPClient(o.httpClient),
		// Retries are handled by Generator.
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		base := strings.TrimSuffix(strings.TrimRight(s.BaseURL, "/"), "/v1")
		reqOpts = append(reqOpts, option.WithBaseURL(base+"/"))
	}

	return &AnthropicClient{
		settings: s,
		client:   anthropic.NewClient(reqOpts...),
	}, nil
}

// Provider implements Completer.
func (c *AnthropicClient) Provider() string { return "anthropic" }

// Model implements Completer.
func (c *AnthropicClient) Model() string { return c.settings.Model }

// Complete sends prompt as a single user message.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, opts ...CallOption) (Completion, error) {
	call := resolveCall(c.settings.MaxTokens, opts)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.settings.Model),
		MaxTokens:   int64(call.maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(c.settings.Temperature),
	})
	if err != nil {
		var sdkErr *anthropic.Error
		if errors.As(err, &sdkErr) {
			return Completion{}, &APIError{
				Provider:   c.Provider(),
				StatusCode: sdkErr.StatusCode,
				Message:    anthropicErrorMessage(sdkErr.RawJSON()),
			}
		}
		return Completion{}, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return Completion{
		Text: text.String(),
		Usage: model.TokenUsage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
		Model:      string(message.Model),
		StopReason: string(message.StopReason),
	}, nil
}

// anthropicErrorMessage turns an error body into "type: message".
// Bodies that are not Anthropic errors are returned trimmed.
func anthropicErrorMessage(raw string) string {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(raw), &body) == nil && body.Error.Message != "" {
		return body.Error.Type + ": " + body.Error.Message
	}
	return strings.TrimSpace(raw)
}
