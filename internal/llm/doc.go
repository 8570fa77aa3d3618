// Package llm generates the analysis of each report section with a large language model.
//
// Three providers implement Completer:
//   - AnthropicClient: the Messages API through anthropic-sdk-go (the default provider)
//   - GeminiClient: the Gemini API through google.golang.org/genai
//   - OllamaClient: a local Ollama server
//
// Generator drives a Completer over the prompts of a report. Calls are
// made one at a time in section order. Transient failures (network
// errors, rate limiting, server errors, overload) are retried with
// exponential backoff; any other failure, and a completion without
// usable text, turns the section into a placeholder without stopping
// the report.
package llm
