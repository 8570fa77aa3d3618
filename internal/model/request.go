package model

import (
	"errors"
	"time"
)

// DateLayout is the date format accepted on the command line and by the dashboard.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidDateFormat is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDateFormat = errors.New("date must be a calendar date in YYYY-MM-DD format")

	// ErrFutureDate is returned for dates after the current day.
	ErrFutureDate = errors.New("date is in the future")
)

// District is one entry of the district registry.
type District struct {
	// Name is the uppercase name used by the dashboard, e.g. "SIDHI".
	Name string `json:"name"`

	// Division is the revenue division the district belongs to.
	Division string `json:"division"`

	// Slug is the lowercase file-name form of Name, e.g. "agar_malwa".
	Slug string `json:"slug"`
}

// ReportRequest is the validated input of a single report run.
type ReportRequest struct {
	Date     time.Time
	District District
}

// NewReportRequest creates a request for the given date and district.
// The date is truncated to the calendar day.
func NewReportRequest(date time.Time, district District) ReportRequest {
	y, m, d := date.Date()
	return ReportRequest{
		Date:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		District: district,
	}
}

// DateString returns the request date in YYYY-MM-DD form.
func (r ReportRequest) DateString() string {
	return r.Date.Format(DateLayout)
}

// ParseReportDate parses a YYYY-MM-DD date and rejects dates after now.
// Errors are *ValidationError values.
func ParseReportDate(value string, now time.Time) (time.Time, error) {
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Value: value, Err: ErrInvalidDateFormat}
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if date.After(today) {
		return time.Time{}, &ValidationError{Field: "date", Value: value, Err: ErrFutureDate}
	}
	return date, nil
}
