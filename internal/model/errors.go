package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when the dashboard has no rows for the requested
	// section, date and district.
	ErrNoData = errors.New("no data for the requested date and district")

	// ErrNoDataAvailable is returned when every section of a report is
	// unavailable. A report with nothing but placeholders is not written.
	ErrNoDataAvailable = errors.New("no data available for any report section")

	// ErrDistrictNotInData is returned when the state-level response has no
	// row for the requested district.
	ErrDistrictNotInData = errors.New("district missing from state-level data")
)

// ValidationError reports invalid command line input.
// It is raised before any network activity.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DataUnavailableError reports that a section's statistics could not be
// retrieved. It degrades the section to a placeholder.
type DataUnavailableError struct {
	Section Section
	Err     error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable for section %s: %v", e.Section, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// GenerationError reports that the LLM call for a section failed or
// produced no usable text. It degrades the section to a placeholder.
type GenerationError struct {
	Section Section
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for section %s: %v", e.Section, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IOError reports a failure to persist output.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
