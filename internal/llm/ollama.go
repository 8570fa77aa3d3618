package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nregsmp/nregsreport/internal/model"
)

// maxErrorBody limits how much of an error response is kept in the error message.
const maxErrorBody = 2048

// OllamaClient calls a local Ollama server.
type OllamaClient struct {
	settings   Settings
	httpClient *http.Client
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

// NewOllamaClient creates a client for the Ollama server at s.BaseURL.
func NewOllamaClient(s Settings, opts ...ClientOption) *OllamaClient {
	if s.BaseURL == "" {
		s.BaseURL = "http://localhost:11434"
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")

	o := resolveClientOptions(opts)
	return &OllamaClient{settings: s, httpClient: o.httpClient}
}

// Provider implements Completer.
func (c *OllamaClient) Provider() string { return "ollama" }

// Model implements Completer.
func (c *OllamaClient) Model() string { return c.settings.Model }

// Complete sends prompt to /api/generate without streaming.
func (c *OllamaClient) Complete(ctx context.Context, prompt string, opts ...CallOption) (Completion, error) {
	call := resolveCall(c.settings.MaxTokens, opts)

	payload, err := json.Marshal(ollamaRequest{
		Model:  c.settings.Model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: c.settings.Temperature,
			NumPredict:  call.maxTokens,
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Provider: c.Provider(), StatusCode: resp.StatusCode}
		var parsed ollamaResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			apiErr.Message = parsed.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return Completion{}, apiErr
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Completion{}, fmt.Errorf("failed to decode ollama response: %w", err)
	}

	return Completion{
		Text: parsed.Response,
		Usage: model.TokenUsage{
			InputTokens:  parsed.PromptEvalCount,
			OutputTokens: parsed.EvalCount,
		},
		Model:      parsed.Model,
		StopReason: parsed.DoneReason,
	}, nil
}
