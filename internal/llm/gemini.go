package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/nregsmp/nregsreport/internal/model"
)

// GeminiClient calls the Gemini API through the Google Gen AI SDK.
type GeminiClient struct {
	settings Settings
	client   *genai.Client
}

// NewGeminiClient creates a Gemini API client.
// An empty BaseURL lets the SDK choose the public endpoint.
func NewGeminiClient(ctx context.Context, s Settings, opts ...ClientOption) (*GeminiClient, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}

	o := resolveClientOptions(opts)
	cfg := &genai.ClientConfig{
		APIKey:     s.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if s.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{settings: s, client: client}, nil
}

// Provider implements Completer.
func (c *GeminiClient) Provider() string { return "gemini" }

// Model implements Completer.
func (c *GeminiClient) Model() string { return c.settings.Model }

// Complete sends prompt as a single user turn.
func (c *GeminiClient) Complete(ctx context.Context, prompt string, opts ...CallOption) (Completion, error) {
	call := resolveCall(c.settings.MaxTokens, opts)

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(call.maxTokens), //nolint:gosec // token limits are far below MaxInt32
		Temperature:     genai.Ptr(float32(c.settings.Temperature)),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.settings.Model, contents, config)
	if err != nil {
		return Completion{}, geminiError(err)
	}

	completion := Completion{
		Text:  resp.Text(),
		Model: resp.ModelVersion,
	}
	if u := resp.UsageMetadata; u != nil {
		completion.Usage = model.TokenUsage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) > 0 {
		completion.StopReason = string(resp.Candidates[0].FinishReason)
	}
	return completion, nil
}

// geminiError converts SDK API errors to *APIError so that the retry
// policy treats every provider alike.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "gemini", StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &APIError{Provider: "gemini", StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
