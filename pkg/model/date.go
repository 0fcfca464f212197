package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical wire form of a civil date.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateLayout,
	"2006/01/02",
	"2006/1/2",
}

// Date is a calendar date. Date-only inputs are held at UTC midnight;
// timestamps keep their instant until Civil is called.
type Date struct {
	time.Time
}

// NewDate returns the civil date y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts the formats the remote stores are known to emit.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("failed to parse date string '%s'", s)
}

// Civil converts the date to its calendar day in loc, held at UTC midnight.
func (d Date) Civil(loc *time.Location) Date {
	if d.IsZero() {
		return d
	}
	if loc == nil {
		loc = time.UTC
	}
	t := d.Time
	// Date-only values already are civil dates.
	if t.Location() != time.UTC || t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		t = t.In(loc)
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// String renders the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// UnmarshalJSON implements the json.Unmarshaler interface for Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// MarshalYAML renders the date in its wire form.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
