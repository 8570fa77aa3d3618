// Package log provides secure logging built on top of the standard slog package.
//
// The SecureHandler masks sensitive values before they reach the output:
//   - HTTP headers carrying credentials (Authorization, X-Api-Key, X-Goog-Api-Key)
//   - attributes whose key names a secret (api_key, password, credential)
//   - LLM provider API keys embedded in messages, errors and URLs
//
// Even in verbose mode, keys are masked so that logs can be shared when
// reporting a failed run.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("calling provider", "provider", "anthropic", "x-api-key", key) // key is masked
package log
