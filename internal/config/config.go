package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

// Report output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatText     = "text"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "nregsreport"

	// DefaultBaseURL is the NREGS Madhya Pradesh dashboard.
	DefaultBaseURL = "https://dashboard.nregsmp.org"

	// DefaultTimeout applies to each dashboard request.
	DefaultTimeout = 30 * time.Second

	// DefaultLLMTimeout applies to each completion request.
	// Long analyses from large models regularly take more than a minute.
	DefaultLLMTimeout = 5 * time.Minute

	// DefaultRetries is the number of retries after a transient failure,
	// for both dashboard and LLM requests.
	DefaultRetries = 2

	// DefaultProvider is the LLM provider used when none is configured.
	DefaultProvider = ProviderAnthropic

	// DefaultMaxTokens limits the length of each section's completion.
	DefaultMaxTokens = 4096

	// DefaultTemperature keeps the analysis close to the supplied figures.
	DefaultTemperature = 0.2

	// DefaultOutputDir receives report files when no --output is given.
	DefaultOutputDir = "output"

	// DefaultFormat is the report output format.
	DefaultFormat = FormatMarkdown

	// DefaultLogFormat is the format of log records on stderr.
	DefaultLogFormat = LogFormatText

	// DefaultUserAgent identifies the tool in dashboard access logs.
	DefaultUserAgent = "nregsreport/1.0 (+https://github.com/nregsmp/nregsreport)"

	// DefaultMaxBodySize limits the size of a dashboard response.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Environment variables read by ApplyEnv.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvBaseURL         = "NREGSREPORT_BASE_URL"
	EnvProvider        = "NREGSREPORT_PROVIDER"
	EnvModel           = "NREGSREPORT_MODEL"
	EnvLLMBaseURL      = "NREGSREPORT_LLM_BASE_URL"
)

var defaultModels = map[string]string{
	ProviderAnthropic: "claude-3-7-sonnet-20250219",
	ProviderGemini:    "gemini-2.0-flash",
	ProviderOllama:    "llama3.1",
}

var defaultLLMBaseURLs = map[string]string{
	ProviderAnthropic: "https://api.anthropic.com/v1",
	ProviderOllama:    "http://localhost:11434",
}

// DefaultModel returns the default model name of a provider.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// DefaultLLMBaseURL returns the default API base URL of a provider.
// Gemini returns an empty string because its SDK resolves the endpoint itself.
func DefaultLLMBaseURL(provider string) string {
	return defaultLLMBaseURLs[provider]
}

// Config holds every setting of a report run.
// It is built once at startup and passed explicitly to each component.
type Config struct {
	// BaseURL is the root URL of the statistics dashboard.
	BaseURL string

	// Timeout is the timeout of each dashboard request.
	Timeout time.Duration

	// Retries is the number of retries after a transient failure.
	// Zero disables retrying.
	Retries int

	// UserAgent is sent with every dashboard request.
	UserAgent string

	// MaxBodySize is the maximum dashboard response size in bytes.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// Provider selects the LLM backend: anthropic, gemini or ollama.
	Provider string

	// Model is the provider's model name. Empty means the provider default.
	Model string

	// APIKey authenticates against the provider. Ollama needs none.
	APIKey string

	// LLMBaseURL overrides the provider's API endpoint.
	LLMBaseURL string

	// LLMTimeout is the timeout of each completion request.
	LLMTimeout time.Duration

	// MaxTokens is the completion token limit per section.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is the format of log records: text or json.
	LogFormat string

	// ConfigFilePath is the explicit config file path, if any.
	ConfigFilePath string

	// File holds the settings loaded from the config file.
	File *File

	// Output is the report destination: a directory, or a file path
	// ending in the format's extension.
	Output string

	// Format is the report output format.
	Format string

	// PromptDir, when set, receives a copy of every composed prompt.
	PromptDir string

	// PreparedBy is printed in the report footer.
	PreparedBy string

	// SaveToDB enables recording the run in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	DBDir string

	// PanchayatDetail adds the best and worst panchayats of every block to
	// the scorecard, at the cost of one request per endpoint and block.
	PanchayatDetail bool

	// MetricsFile, when set, receives run metrics in Prometheus text format.
	MetricsFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
		Retries:     DefaultRetries,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Provider:    DefaultProvider,
		LLMTimeout:  DefaultLLMTimeout,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Output:      DefaultOutputDir,
		Format:      DefaultFormat,
		LogFormat:   DefaultLogFormat,
		SaveToDB:    true,
		DBDir:       XDGDataDir(),
		File:        NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for the tool.
// On Linux: ~/.local/share/nregsreport
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the tool.
// On Linux: ~/.config/nregsreport
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyFile copies settings from the config file into c.
// Only non-zero file values override c.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f

	if f.Dashboard.BaseURL != "" {
		c.BaseURL = f.Dashboard.BaseURL
	}
	if f.Dashboard.Timeout > 0 {
		c.Timeout = f.Dashboard.Timeout
	}
	if f.Dashboard.Retries != nil {
		c.Retries = *f.Dashboard.Retries
	}
	if f.Dashboard.UserAgent != "" {
		c.UserAgent = f.Dashboard.UserAgent
	}

	if f.LLM.Provider != "" {
		c.Provider = strings.ToLower(strings.TrimSpace(f.LLM.Provider))
	}
	if f.LLM.Model != "" {
		c.Model = f.LLM.Model
	}
	if f.LLM.APIKey != "" {
		c.APIKey = f.LLM.APIKey
	}
	if f.LLM.BaseURL != "" {
		c.LLMBaseURL = f.LLM.BaseURL
	}
	if f.LLM.Timeout > 0 {
		c.LLMTimeout = f.LLM.Timeout
	}
	if f.LLM.Temperature != nil {
		c.Temperature = *f.LLM.Temperature
	}
	if f.Defaults.MaxTokens > 0 {
		c.MaxTokens = f.Defaults.MaxTokens
	}

	if f.Output.Dir != "" {
		c.Output = f.Output.Dir
	}
	if f.Output.Format != "" {
		c.Format = NormalizeFormat(f.Output.Format)
	}
	if f.Output.PromptDir != "" {
		c.PromptDir = f.Output.PromptDir
	}
	if f.Output.PreparedBy != "" {
		c.PreparedBy = f.Output.PreparedBy
	}

	if f.Scorecard.Panchayats {
		c.PanchayatDetail = true
	}
}

// NormalizeFormat maps a format name to one of the Format constants.
// Case is ignored and the file extensions "md" and "txt" are accepted as
// aliases. Unknown names are returned lower-cased for Validate to reject.
func NormalizeFormat(name string) string {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case "md":
		return FormatMarkdown
	case "txt":
		return FormatText
	default:
		return name
	}
}

// ApplyEnv reads settings from the environment through getenv.
// The API key is read for the provider selected after the environment
// overrides are applied; a key already set by the config file is replaced
// only when the environment has one.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := getenv(EnvProvider); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := getenv(EnvModel); v != "" {
		c.Model = v
	}
	if v := getenv(EnvLLMBaseURL); v != "" {
		c.LLMBaseURL = v
	}

	switch c.Provider {
	case ProviderAnthropic:
		if v := getenv(EnvAnthropicAPIKey); v != "" {
			c.APIKey = v
		}
	case ProviderGemini:
		if v := getenv(EnvGeminiAPIKey); v != "" {
			c.APIKey = v
		} else if v := getenv(EnvGoogleAPIKey); v != "" {
			c.APIKey = v
		}
	}
}

// ResolveModel returns the configured model, or the provider default.
func (c *Config) ResolveModel() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel(c.Provider)
}

// ResolveLLMBaseURL returns the configured LLM endpoint, or the provider default.
func (c *Config) ResolveLLMBaseURL() string {
	if c.LLMBaseURL != "" {
		return c.LLMBaseURL
	}
	return DefaultLLMBaseURL(c.Provider)
}

// Validate checks the configuration and returns the first problem found.
// Every returned error satisfies errors.Is(err, ErrConfig).
func (c *Config) Validate() error {
	if err := validateURL(c.BaseURL); err != nil {
		return fmt.Errorf("dashboard %w", err)
	}

	if c.Timeout <= 0 || c.LLMTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("%w %q: use anthropic, gemini or ollama", ErrUnknownProvider, c.Provider)
	}

	if c.ResolveModel() == "" {
		return ErrMissingModel
	}

	if c.Provider != ProviderOllama && strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}

	if c.LLMBaseURL != "" {
		if err := validateURL(c.LLMBaseURL); err != nil {
			return fmt.Errorf("LLM %w", err)
		}
	}

	if c.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}

	switch c.Format {
	case FormatMarkdown, FormatJSON, FormatText:
	default:
		return ErrUnknownFormat
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return ErrUnknownLogFormat
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidBaseURL
	}
	return nil
}
