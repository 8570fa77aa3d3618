package config

import (
	"errors"
	"fmt"
)

// ErrConfig is the parent of every configuration error.
// Callers use errors.Is(err, ErrConfig) to tell configuration problems
// apart from runtime failures.
var ErrConfig = errors.New("configuration error")

func configError(msg string) error {
	return fmt.Errorf("%w: %s", ErrConfig, msg)
}

// Configuration validation errors returned by Config.Validate.
var (
	// ErrMissingAPIKey is returned when the selected LLM provider needs an
	// API key and none was found in the environment or config file.
	ErrMissingAPIKey = configError("missing LLM API key: set ANTHROPIC_API_KEY (anthropic) or GEMINI_API_KEY (gemini)")

	// ErrUnknownProvider is returned for a provider other than anthropic, gemini or ollama.
	ErrUnknownProvider = configError("unknown LLM provider")

	// ErrMissingModel is returned when no model name is configured.
	ErrMissingModel = configError("missing LLM model name")

	// ErrInvalidTimeout is returned when a request timeout is not positive.
	ErrInvalidTimeout = configError("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = configError("invalid retries: must be non-negative")

	// ErrInvalidMaxTokens is returned when the completion token limit is not positive.
	ErrInvalidMaxTokens = configError("invalid max tokens: must be positive")

	// ErrInvalidBaseURL is returned when a base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = configError("invalid base URL: must be an absolute http or https URL")

	// ErrUnknownFormat is returned for an output format other than markdown, json or text.
	ErrUnknownFormat = configError("unknown output format: use markdown, json or text")

	// ErrUnknownLogFormat is returned for a log format other than text or json.
	ErrUnknownLogFormat = configError("unknown log format: use text or json")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = configError("invalid max body size: must be non-negative")
)
