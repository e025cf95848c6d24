// Package schedule decides which batch holds designated seats on a given day
// and whether a user may book a seat of a given type.  Everything here is a
// pure function of dates and the current instant; nothing touches storage.
package schedule

import (
	"fmt"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// DefaultReferenceMonday is the first Monday of week 1 of the rotation.
var DefaultReferenceMonday = time.Date(2026, time.February, 23, 0, 0, 0, 0, time.UTC)

// MaxCalendarDays bounds the range accepted by Calendar.
const MaxCalendarDays = 62

// Resolver maps calendar days to the batch that is designated that day.
type Resolver struct {
	reference time.Time
	loc       *time.Location
}

// NewResolver builds a Resolver anchored at referenceMonday.  Only the
// calendar fields of referenceMonday are used; it must fall on a Monday.
func NewResolver(referenceMonday time.Time, loc *time.Location) (*Resolver, error) {
	if loc == nil {
		loc = time.UTC
	}
	ref := time.Date(referenceMonday.Year(), referenceMonday.Month(), referenceMonday.Day(), 0, 0, 0, 0, loc)
	if ref.Weekday() != time.Monday {
		return nil, fmt.Errorf("reference date %s is a %s, not a Monday", model.FormatDate(ref), ref.Weekday())
	}
	return &Resolver{reference: ref, loc: loc}, nil
}

// Location returns the reference time zone all dates are normalised to.
func (r *Resolver) Location() *time.Location { return r.loc }

// Resolve returns the designated batch for date.  ok is false on Saturdays
// and Sundays, when the office is closed.
func (r *Resolver) Resolve(date time.Time) (batch model.Batch, ok bool) {
	d := model.DateOf(date, r.loc)
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return "", false
	}
	early := wd >= time.Monday && wd <= time.Wednesday
	if r.weekOne(d) == early {
		return model.BatchA, true
	}
	return model.BatchB, true
}

// Week returns 1 or 2: the rotation parity of the week containing date.
func (r *Resolver) Week(date time.Time) int {
	if r.weekOne(model.DateOf(date, r.loc)) {
		return 1
	}
	return 2
}

func (r *Resolver) weekOne(d time.Time) bool {
	weeks := floorDiv(model.DaysBetween(r.reference, d), 7)
	return weeks%2 == 0
}

// floorDiv rounds towards negative infinity so days before the reference
// Monday still land in the right week.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Day is one entry of a rendered calendar.
type Day struct {
	Date  time.Time
	Week  int
	Open  bool
	Batch model.Batch
}

// Calendar resolves every day in [from, to].  The range may not exceed
// MaxCalendarDays.
func (r *Resolver) Calendar(from, to time.Time) ([]Day, error) {
	from = model.DateOf(from, r.loc)
	to = model.DateOf(to, r.loc)
	n := model.DaysBetween(from, to)
	if n < 0 {
		return nil, fmt.Errorf("%w: range end %s is before start %s", model.ErrValidation, model.FormatDate(to), model.FormatDate(from))
	}
	if n >= MaxCalendarDays {
		return nil, fmt.Errorf("%w: range exceeds %d days", model.ErrValidation, MaxCalendarDays)
	}
	days := make([]Day, 0, n+1)
	for i := 0; i <= n; i++ {
		d := from.AddDate(0, 0, i)
		batch, open := r.Resolve(d)
		days = append(days, Day{Date: d, Week: r.Week(d), Open: open, Batch: batch})
	}
	return days, nil
}
