package config

import (
	"time"

	"github.com/nregsmp/nregsreport/internal/model"
)

// DashboardFile holds the dashboard settings of the config file.
type DashboardFile struct {
	BaseURL   string        `yaml:"baseURL,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Retries   *int          `yaml:"retries,omitempty"`
	UserAgent string        `yaml:"userAgent,omitempty"`
}

// LLMFile holds the LLM provider settings of the config file.
type LLMFile struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`

	// APIKey is accepted for completeness; the environment is the
	// recommended place for credentials.
	APIKey      string        `yaml:"apiKey,omitempty"`
	BaseURL     string        `yaml:"baseURL,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Temperature *float64      `yaml:"temperature,omitempty"`
}

// OutputFile holds the output settings of the config file.
type OutputFile struct {
	Dir        string `yaml:"dir,omitempty"`
	Format     string `yaml:"format,omitempty"`
	PromptDir  string `yaml:"promptDir,omitempty"`
	PreparedBy string `yaml:"preparedBy,omitempty"`
}

// ScorecardFile holds the scorecard settings of the config file.
type ScorecardFile struct {
	// Panchayats adds the best and worst panchayats of every block.
	Panchayats bool `yaml:"panchayats,omitempty"`
}

// SectionConfig customizes the generation of one report section.
type SectionConfig struct {
	// Instructions are appended to the section prompt, e.g. to ask for a
	// particular emphasis in the recommendations.
	Instructions string `yaml:"instructions,omitempty"`

	// MaxTokens overrides the completion token limit for the section.
	MaxTokens int `yaml:"maxTokens,omitempty"`

	// Skip renders the section as a no-data placeholder without fetching it.
	Skip bool `yaml:"skip,omitempty"`
}

// File represents the structure of the configuration file.
type File struct {
	Dashboard DashboardFile `yaml:"dashboard,omitempty"`
	LLM       LLMFile       `yaml:"llm,omitempty"`
	Output    OutputFile    `yaml:"output,omitempty"`
	Scorecard ScorecardFile `yaml:"scorecard,omitempty"`

	// Sections maps section slugs (e.g. "person-days") to their settings.
	Sections map[string]SectionConfig `yaml:"sections,omitempty"`

	// Defaults apply to every section unless overridden in Sections.
	Defaults SectionConfig `yaml:"defaults,omitempty"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{Sections: make(map[string]SectionConfig)}
}

// SectionConfig returns the settings for a section, merging the
// section-specific values over the defaults.
func (f *File) SectionConfig(s model.Section) SectionConfig {
	if f == nil {
		return SectionConfig{}
	}

	result := f.Defaults

	if sc, ok := f.Sections[s.String()]; ok {
		if sc.Instructions != "" {
			if result.Instructions != "" {
				result.Instructions += "\n" + sc.Instructions
			} else {
				result.Instructions = sc.Instructions
			}
		}
		if sc.MaxTokens != 0 {
			result.MaxTokens = sc.MaxTokens
		}
		if sc.Skip {
			result.Skip = true
		}
	}

	return result
}

// UnknownSections returns the keys of Sections that name no section.
func (f *File) UnknownSections() []string {
	if f == nil {
		return nil
	}
	var unknown []string
	for slug := range f.Sections {
		if _, err := model.ParseSection(slug); err != nil {
			unknown = append(unknown, slug)
		}
	}
	return unknown
}
