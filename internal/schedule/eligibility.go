package schedule

import (
	"time"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// Reasons reported for ineligible decisions.
const (
	ReasonClosedDay               = "closed day"
	ReasonOutsideDesignatedWindow = "outside 2-week window"
	ReasonOutsideBufferWindow     = "outside buffer window"
)

// Policy holds the booking-window rules.
//
//  DesignatedWindowDays – designated seats open this many days ahead (inclusive).
//  BufferOpenHour       – hour on the previous day when buffer booking opens.
//  BufferCloseHour      – hour on the day itself when buffer booking closes.
type Policy struct {
	DesignatedWindowDays int
	BufferOpenHour       int
	BufferCloseHour      int
}

// DefaultPolicy returns the standard office rules: 14 days for designated
// seats, buffer seats from 15:00 the day before until 12:00 on the day.
func DefaultPolicy() Policy {
	return Policy{DesignatedWindowDays: 14, BufferOpenHour: 15, BufferCloseHour: 12}
}

// Decision is the outcome of classifying a (date, batch, now) triple.
// SeatType is filled whenever the day is open, even for ineligible
// decisions, so callers can explain which window was missed.
type Decision struct {
	Eligible bool
	SeatType model.SeatType
	Reason   string
}

// Classifier decides seat-type entitlement.  It never looks at capacity.
type Classifier struct {
	resolver *Resolver
	policy   Policy
}

func NewClassifier(r *Resolver, p Policy) *Classifier {
	return &Classifier{resolver: r, policy: p}
}

// Resolver exposes the underlying schedule.
func (c *Classifier) Resolver() *Resolver { return c.resolver }

// Classify decides whether a user of batch may book date at instant now.
func (c *Classifier) Classify(date time.Time, batch model.Batch, now time.Time) Decision {
	dayBatch, open := c.resolver.Resolve(date)
	if !open {
		return Decision{Reason: ReasonClosedDay}
	}
	if dayBatch == batch {
		if !c.InDesignatedWindow(date, now) {
			return Decision{SeatType: model.SeatDesignated, Reason: ReasonOutsideDesignatedWindow}
		}
		return Decision{Eligible: true, SeatType: model.SeatDesignated}
	}
	if !c.InBufferWindow(date, now) {
		return Decision{SeatType: model.SeatBuffer, Reason: ReasonOutsideBufferWindow}
	}
	return Decision{Eligible: true, SeatType: model.SeatBuffer}
}

// InDesignatedWindow reports whether date is at most DesignatedWindowDays
// after today.  Past dates are not rejected here.
func (c *Classifier) InDesignatedWindow(date, now time.Time) bool {
	loc := c.resolver.Location()
	return model.DaysBetween(model.DateOf(now, loc), model.DateOf(date, loc)) <= c.policy.DesignatedWindowDays
}

// InBufferWindow reports whether now falls inside the buffer booking window
// for date: tomorrow once the open hour has passed today, or today before
// the close hour.  Any other offset is outside the window.
func (c *Classifier) InBufferWindow(date, now time.Time) bool {
	loc := c.resolver.Location()
	now = now.In(loc)
	today := model.DateOf(now, loc)
	switch model.DaysBetween(today, model.DateOf(date, loc)) {
	case 1:
		opens := time.Date(today.Year(), today.Month(), today.Day(), c.policy.BufferOpenHour, 0, 0, 0, loc)
		return !now.Before(opens)
	case 0:
		closes := time.Date(today.Year(), today.Month(), today.Day(), c.policy.BufferCloseHour, 0, 0, 0, loc)
		return now.Before(closes)
	default:
		return false
	}
}
