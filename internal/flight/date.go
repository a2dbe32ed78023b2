package flight

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedDate is returned when a calendar date string is not YYYY-MM-DD.
var ErrMalformedDate = errors.New("malformed calendar date")

const dateLayout = "2006-01-02"

// Date is a timezone-free calendar day. It serializes as "YYYY-MM-DD" in
// both JSON and YAML so stored preferences and audit logs stay readable.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates a time.Time to its calendar day in the time's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the calendar day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String renders the date as "YYYY-MM-DD".
func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// After reports whether d is a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// AddDays returns the date shifted by the given number of days.
func (d Date) AddDays(days int) Date {
	return DateOf(d.Time().AddDate(0, 0, days))
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// MarshalJSON renders the date as a "YYYY-MM-DD" JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a "YYYY-MM-DD" JSON string.
func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrMalformedDate, string(data))
	}
	parsed, err := ParseDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
