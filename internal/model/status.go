package model

import "fmt"

// SectionStatus is the outcome of one section of a report run.
type SectionStatus int

const (
	// StatusPending marks a section that has not been processed yet.
	// A document is only written once no section is pending.
	StatusPending SectionStatus = iota

	// StatusOK marks a section whose analysis was generated.
	StatusOK

	// StatusNoData marks a section for which the dashboard returned no usable data.
	// The section is rendered as a placeholder and no LLM call is made for it.
	StatusNoData

	// StatusGenerationFailed marks a section whose LLM call failed or returned
	// empty text. The section is rendered as a placeholder.
	StatusGenerationFailed
)

var statusNames = map[SectionStatus]string{
	StatusPending:          "PENDING",
	StatusOK:               "OK",
	StatusNoData:           "NO_DATA",
	StatusGenerationFailed: "GENERATION_FAILED",
}

// String returns a human-readable representation of the status.
func (s SectionStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsPlaceholder reports whether a section with this status is rendered
// as a placeholder instead of generated text.
func (s SectionStatus) IsPlaceholder() bool {
	return s == StatusNoData || s == StatusGenerationFailed
}

// MarshalText encodes the status as its name.
func (s SectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *SectionStatus) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown section status %q", string(text))
}
