package model

import (
    "fmt"
    "strings"
    "time"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

// DateOf truncates t to midnight of its calendar day in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
    t = t.In(loc)
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.  Malformed input
// is reported as ErrValidation.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, fmt.Errorf("%w: date is required", ErrValidation)
    }
    d, err := time.ParseInLocation(DateLayout, s, loc)
    if err != nil {
        return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrValidation, s)
    }
    return d, nil
}

// FormatDate renders a day as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// DaysBetween returns the number of calendar days from a to b (negative when
// b is earlier).  Only the calendar fields are compared, so DST transitions
// in the reference zone do not skew the result.
func DaysBetween(a, b time.Time) int {
    ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
    ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
    return int(ub.Sub(ua).Hours() / 24)
}
