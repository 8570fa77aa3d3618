package district

import (
	"errors"
	"strings"
	"testing"

	"github.com/nregsmp/nregsreport/internal/model"
)

// TestRegistryCompleteness verifies the registry against the 52 districts
// served by the dashboard.
func TestRegistryCompleteness(t *testing.T) {
	t.Parallel()

	all := All()
	if len(all) != Count {
		t.Fatalf("expected %d districts, got %d", Count, len(all))
	}

	total := 0
	for _, names := range divisions {
		total += len(names)
	}
	if total != Count {
		t.Errorf("divisions list %d names, expected %d (duplicate across divisions?)", total, Count)
	}

	for _, d := range all {
		if d.Name == "" {
			t.Error("empty district name")
		}
		if d.Name != strings.ToUpper(d.Name) {
			t.Errorf("district %q is not uppercase", d.Name)
		}
		if strings.TrimSpace(d.Name) != d.Name {
			t.Errorf("district %q has surrounding whitespace", d.Name)
		}
		if d.Division == "" {
			t.Errorf("district %q has no division", d.Name)
		}
		if d.Slug == "" || strings.ContainsAny(d.Slug, " /") {
			t.Errorf("district %q has bad slug %q", d.Name, d.Slug)
		}
	}

	if got := len(Divisions()); got != 10 {
		t.Errorf("expected 10 divisions, got %d", got)
	}
}

// TestLookup tests exact-match validation.
func TestLookup(t *testing.T) {
	t.Parallel()

	t.Run("known district", func(t *testing.T) {
		t.Parallel()
		d, err := Lookup("SIDHI")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Division != "Rewa" {
			t.Errorf("expected division Rewa, got %q", d.Division)
		}
		if d.Slug != "sidhi" {
			t.Errorf("expected slug sidhi, got %q", d.Slug)
		}
	})

	t.Run("multi-word district", func(t *testing.T) {
		t.Parallel()
		d, err := Lookup("AGAR MALWA")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Slug != "agar_malwa" {
			t.Errorf("expected slug agar_malwa, got %q", d.Slug)
		}
	})

	testCases := []struct {
		name       string
		input      string
		suggestion bool
	}{
		{"unknown name", "NOTADISTRICT", false},
		{"empty", "", false},
		{"lowercase", "sidhi", true},
		{"mixed case", "Indore", true},
		{"trailing space", "SIDHI ", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Lookup(tc.input)
			if !errors.Is(err, ErrUnknownDistrict) {
				t.Fatalf("expected ErrUnknownDistrict, got %v", err)
			}
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *model.ValidationError, got %T", err)
			}
			if ve.Field != "district" || ve.Value != tc.input {
				t.Errorf("unexpected field/value: %q %q", ve.Field, ve.Value)
			}
			if got := strings.Contains(err.Error(), "did you mean"); got != tc.suggestion {
				t.Errorf("suggestion present = %v, expected %v (%v)", got, tc.suggestion, err)
			}
		})
	}
}

// TestByDivision tests grouping by revenue division.
func TestByDivision(t *testing.T) {
	t.Parallel()

	rewa := ByDivision("rewa")
	want := []string{"REWA", "SATNA", "SIDHI", "SINGRAULI"}
	if len(rewa) != len(want) {
		t.Fatalf("expected %d districts, got %d", len(want), len(rewa))
	}
	for i, d := range rewa {
		if d.Name != want[i] {
			t.Errorf("position %d: got %q, expected %q", i, d.Name, want[i])
		}
	}

	if got := ByDivision("Nowhere"); len(got) != 0 {
		t.Errorf("expected no districts, got %d", len(got))
	}
}

// TestDisplayName tests title casing of district names.
func TestDisplayName(t *testing.T) {
	t.Parallel()

	d, err := Lookup("AGAR MALWA")
	if err != nil {
		t.Fatal(err)
	}
	if got := DisplayName(d); got != "Agar Malwa" {
		t.Errorf("got %q, expected %q", got, "Agar Malwa")
	}
}

// TestNamesSorted verifies Names returns sorted output.
func TestNamesSorted(t *testing.T) {
	t.Parallel()

	names := Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted at %d: %q >= %q", i, names[i-1], names[i])
		}
	}
}
