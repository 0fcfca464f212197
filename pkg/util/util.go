package util

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

const day = 24 * time.Hour

// TruncateDay drops the time of day, keeping the calendar date of t as seen
// in t's own location. The result is held at UTC midnight.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WallClock re-expresses the wall-clock reading of t in loc as if it were UTC,
// so it can be compared against civil dates held at UTC midnight.
func WallClock(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// DaysBetween returns the (possibly fractional, possibly negative) number of
// days from a to b.
func DaysBetween(a, b time.Time) float64 {
	return float64(b.Sub(a)) / float64(day)
}

// CeilDays is DaysBetween rounded up to a whole day.
func CeilDays(a, b time.Time) int {
	return int(math.Ceil(DaysBetween(a, b)))
}

// FloorDays is DaysBetween rounded down to a whole day.
func FloorDays(a, b time.Time) int {
	return int(math.Floor(DaysBetween(a, b)))
}

// AddWeeks moves a civil date forward by n weeks.
func AddWeeks(d model.Date, n int) model.Date {
	return model.Date{Time: d.AddDate(0, 0, 7*n)}
}

// FirstToken returns the first whitespace-delimited token of s.
func FirstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Truncate shortens s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
