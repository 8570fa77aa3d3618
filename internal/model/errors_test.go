package model

import (
	"errors"
	"strings"
	"testing"
)

// TestErrorsUnwrap verifies that typed errors expose their cause.
func TestErrorsUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")

	testCases := []struct {
		name     string
		err      error
		contains string
	}{
		{"validation", &ValidationError{Field: "district", Value: "NOTADISTRICT", Err: cause}, `invalid district "NOTADISTRICT"`},
		{"data unavailable", &DataUnavailableError{Section: SectionInspections, Err: cause}, "section inspections"},
		{"generation", &GenerationError{Section: SectionZeroMuster, Err: cause}, "section zero-muster"},
		{"io", &IOError{Op: "write", Path: "/tmp/x.md", Err: cause}, "write /tmp/x.md"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if !errors.Is(tc.err, cause) {
				t.Errorf("expected %v to wrap cause", tc.err)
			}
			if !strings.Contains(tc.err.Error(), tc.contains) {
				t.Errorf("expected %q in %q", tc.contains, tc.err.Error())
			}
		})
	}
}
