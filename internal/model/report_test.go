package model

import (
	"errors"
	"testing"
	"time"
)

func sidhiRequest() ReportRequest {
	return NewReportRequest(
		time.Date(2025, 3, 19, 15, 4, 5, 0, time.UTC),
		District{Name: "SIDHI", Division: "Rewa", Slug: "sidhi"},
	)
}

// TestNewReportDocument verifies that a new document has every section pending in order.
func TestNewReportDocument(t *testing.T) {
	t.Parallel()

	doc := NewReportDocument(sidhiRequest())

	if len(doc.Sections) != SectionCount {
		t.Fatalf("expected %d sections, got %d", SectionCount, len(doc.Sections))
	}
	for i, r := range doc.Sections {
		if r.Section != Section(i) {
			t.Errorf("slot %d holds %v", i, r.Section)
		}
		if r.Status != StatusPending {
			t.Errorf("slot %d: expected pending, got %v", i, r.Status)
		}
	}
	if doc.Complete() {
		t.Error("expected new document to be incomplete")
	}
	if doc.DateString() != "2025-03-19" {
		t.Errorf("got date %q", doc.DateString())
	}
}

// TestReportDocumentResults tests recording section outcomes.
func TestReportDocumentResults(t *testing.T) {
	t.Parallel()

	doc := NewReportDocument(sidhiRequest())
	for _, s := range Sections() {
		doc.SetResult(SectionResult{
			Section:  s,
			Status:   StatusOK,
			Analysis: Analysis{Text: "ok"},
			Usage:    TokenUsage{InputTokens: 10, OutputTokens: 5},
		})
	}
	doc.MarkNoData(SectionNMMSUsage, ErrNoData)
	doc.MarkFailed(SectionZeroMuster, errors.New("boom"))

	t.Run("complete", func(t *testing.T) {
		t.Parallel()
		if !doc.Complete() {
			t.Error("expected document to be complete")
		}
	})

	t.Run("counts", func(t *testing.T) {
		t.Parallel()
		if got := doc.CountByStatus(StatusOK); got != 9 {
			t.Errorf("expected 9 OK sections, got %d", got)
		}
		if got := doc.CountByStatus(StatusNoData); got != 1 {
			t.Errorf("expected 1 no-data section, got %d", got)
		}
		if got := doc.CountByStatus(StatusGenerationFailed); got != 1 {
			t.Errorf("expected 1 failed section, got %d", got)
		}
	})

	t.Run("placeholder carries error", func(t *testing.T) {
		t.Parallel()
		r := doc.Result(SectionZeroMuster)
		if r.Error != "boom" {
			t.Errorf("expected error text, got %q", r.Error)
		}
		if r.Placeholder() == "" {
			t.Error("expected placeholder text")
		}
	})

	t.Run("usage only counts generated sections", func(t *testing.T) {
		t.Parallel()
		if got := doc.TotalUsage().Total(); got != 9*15 {
			t.Errorf("expected %d tokens, got %d", 9*15, got)
		}
	})

	t.Run("invalid section is ignored", func(t *testing.T) {
		t.Parallel()
		if doc.Result(Section(-1)) != nil {
			t.Error("expected nil for invalid section")
		}
	})
}

// TestParseReportDate tests date validation.
func TestParseReportDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid date", "2025-03-19", nil},
		{"today", "2025-03-20", nil},
		{"future", "2025-03-21", ErrFutureDate},
		{"wrong layout", "19-03-2025", ErrInvalidDateFormat},
		{"impossible day", "2025-02-30", ErrInvalidDateFormat},
		{"empty", "", ErrInvalidDateFormat},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseReportDate(tc.input, now)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected *ValidationError, got %T", err)
			} else if ve.Field != "date" {
				t.Errorf("expected field date, got %q", ve.Field)
			}
		})
	}
}

// TestGrade tests the dashboard grade thresholds.
func TestGrade(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		marks    float64
		expected string
	}{
		{85, "A"},
		{70, "A"},
		{69.99, "B"},
		{60, "B"},
		{45, "C"},
		{44.9, "D"},
		{0, "D"},
	}
	for _, tc := range testCases {
		if got := Grade(tc.marks); got != tc.expected {
			t.Errorf("Grade(%v) = %q, expected %q", tc.marks, got, tc.expected)
		}
	}
}

// TestRowFloat tests numeric extraction from dashboard rows.
func TestRowFloat(t *testing.T) {
	t.Parallel()

	row := Row{
		"group_name": "SIDHI",
		"f":          12.5,
		"s":          " 7.25 ",
		"bad":        "n/a",
		"nil":        nil,
	}

	if row.Name() != "SIDHI" {
		t.Errorf("got name %q", row.Name())
	}
	if v, ok := row.Float("f"); !ok || v != 12.5 {
		t.Errorf("Float(f) = %v, %v", v, ok)
	}
	if v, ok := row.Float("s"); !ok || v != 7.25 {
		t.Errorf("Float(s) = %v, %v", v, ok)
	}
	if _, ok := row.Float("bad"); ok {
		t.Error("expected non-numeric string to fail")
	}
	if _, ok := row.Float("nil"); ok {
		t.Error("expected null to fail")
	}
	if got := row.FloatOr("missing", 3); got != 3 {
		t.Errorf("FloatOr default = %v", got)
	}
	if got := Round2(2.345678); got != 2.35 {
		t.Errorf("Round2 = %v", got)
	}
}
