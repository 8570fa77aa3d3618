package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nregsmp/nregsreport/internal/model"
)

var (
	// ErrEmptyCompletion is returned when a provider answers without usable text.
	ErrEmptyCompletion = errors.New("completion contained no text")

	// ErrMissingAPIKey is returned when a hosted provider is created without a key.
	ErrMissingAPIKey = errors.New("API key is required")
)

// StatusOverloaded is the non-standard status Anthropic returns when its
// API is temporarily overloaded.
const StatusOverloaded = 529

// Completion is the answer to one prompt.
type Completion struct {
	Text  string
	Usage model.TokenUsage

	// Model is the model that served the request, as reported by the provider.
	Model string

	// StopReason is the provider's reason for ending the completion, if reported.
	StopReason string
}

// Completer sends a prompt to an LLM and returns its answer.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts ...CallOption) (Completion, error)

	// Provider returns the provider name, e.g. "anthropic".
	Provider() string

	// Model returns the configured model name.
	Model() string
}

// callSettings are the per-call overrides of a completion request.
type callSettings struct {
	maxTokens int
}

// CallOption overrides a setting for a single Complete call.
type CallOption func(*callSettings)

// WithMaxTokens overrides the completion token limit of one call.
// Non-positive values are ignored.
func WithMaxTokens(n int) CallOption {
	return func(s *callSettings) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

func resolveCall(defaultMaxTokens int, opts []CallOption) callSettings {
	s := callSettings{maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// APIError reports a failed provider request.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API returned HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API returned HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed when retried:
// rate limiting, server errors and overload.
func (e *APIError) Temporary() bool {
	return isTemporaryStatus(e.StatusCode)
}

func isTemporaryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == StatusOverloaded || code >= http.StatusInternalServerError
}

// Settings configures a provider client.
type Settings struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// ClientOption configures a provider client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
}

// WithHTTPClient sets the HTTP client used to reach the provider.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = hc
	}
}

func resolveClientOptions(opts []ClientOption) clientOptions {
	o := clientOptions{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
