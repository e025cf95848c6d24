// Package service implements the seat booking engine: it validates and
// classifies requests, then claims or releases inventory and writes the
// booking record as one atomic unit.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/office-seat-booking/internal/clock"
	"github.com/iliyamo/office-seat-booking/internal/model"
	"github.com/iliyamo/office-seat-booking/internal/queue"
	"github.com/iliyamo/office-seat-booking/internal/repository"
	"github.com/iliyamo/office-seat-booking/internal/schedule"
)

// EventPublisher receives domain events after a booking or cancellation
// has been persisted.  *queue.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// Deps wires a BookingService.  Clock defaults to the real clock; Events may
// be nil to disable publishing.
type Deps struct {
	Store      repository.Store
	Users      repository.UserDirectory
	Classifier *schedule.Classifier
	Clock      clock.Clock
	Events     EventPublisher
	Logger     zerolog.Logger
}

// BookingService is safe for concurrent use.  It holds no per-date state:
// concurrent requests are arbitrated by the store's conditional updates and
// its one-active-booking-per-user-and-day constraint.
type BookingService struct {
	store      repository.Store
	users      repository.UserDirectory
	classifier *schedule.Classifier
	clock      clock.Clock
	events     EventPublisher
	log        zerolog.Logger

	tx   executor
	comp executor
	// noTx is set once the store has reported ErrTxUnsupported; later
	// operations go straight to the compensating executor.
	noTx atomic.Bool
}

func NewBookingService(d Deps) *BookingService {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	logger := d.Logger.With().Str("component", "booking").Logger()
	return &BookingService{
		store:      d.Store,
		users:      d.Users,
		classifier: d.Classifier,
		clock:      d.Clock,
		events:     d.Events,
		log:        logger,
		tx:         txExecutor{store: d.Store},
		comp:       compensatingExecutor{store: d.Store, log: logger},
	}
}

// Location is the reference time zone of every date handled by the service.
func (s *BookingService) Location() *time.Location { return s.classifier.Resolver().Location() }

// Today is the current calendar day in the reference time zone.
func (s *BookingService) Today() time.Time { return model.DateOf(s.clock.Now(), s.Location()) }

// BookRequest identifies a user and a YYYY-MM-DD day.  Cancel takes the
// same shape.
type BookRequest struct {
	UserID uint64
	Date   string
}

// Book reserves a seat for req.UserID on req.Date.  The returned booking
// carries the seat type that was granted.
//
// Errors: model.ErrValidation, *model.IneligibleError, model.ErrUserNotFound,
// model.ErrDuplicateBooking, model.ErrCapacityExhausted, *model.StorageError.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (model.Booking, error) {
	date, err := s.parseRequest(req)
	if err != nil {
		return model.Booking{}, err
	}
	now := s.clock.Now()
	if model.DaysBetween(model.DateOf(now, s.Location()), date) < 0 {
		return model.Booking{}, fmt.Errorf("%w: cannot book for past dates", model.ErrValidation)
	}
	user, err := s.user(ctx, req.UserID)
	if err != nil {
		return model.Booking{}, err
	}

	dec := s.classifier.Classify(date, user.Batch, now)
	if !dec.Eligible {
		return model.Booking{}, &model.IneligibleError{Reason: dec.Reason, SeatType: dec.SeatType}
	}

	// Advisory fast path; the store's uniqueness constraint is the arbiter.
	if _, err := s.store.Bookings().FindActive(ctx, user.ID, date); err == nil {
		return model.Booking{}, fmt.Errorf("%w: %s", model.ErrDuplicateBooking, model.FormatDate(date))
	} else if !errors.Is(err, model.ErrBookingNotFound) {
		return model.Booking{}, storageErr("find active booking", err)
	}

	if _, err := s.store.Ledger().Ensure(ctx, date); err != nil {
		return model.Booking{}, storageErr("ensure inventory", err)
	}

	var booked model.Booking
	err = s.run(func(ex executor) error {
		var err error
		booked, err = ex.book(ctx, model.Booking{
			UserID:    user.ID,
			UserBatch: user.Batch,
			Date:      date,
			SeatType:  dec.SeatType,
		})
		return err
	})
	if err != nil {
		return model.Booking{}, storageErr("book", err)
	}

	s.log.Info().
		Uint64("booking_id", booked.ID).
		Uint64("user_id", booked.UserID).
		Str("date", model.FormatDate(date)).
		Str("seat_type", string(booked.SeatType)).
		Msg("seat booked")
	s.publish(ctx, queue.NewSeatBookedEvent(booked, now))
	return booked, nil
}

// Cancel releases the user's active booking on req.Date.  A designated
// seat's capacity moves permanently to the buffer pool.
//
// Errors: model.ErrValidation, model.ErrBookingNotFound, *model.StorageError.
func (s *BookingService) Cancel(ctx context.Context, req BookRequest) (model.Booking, error) {
	date, err := s.parseRequest(req)
	if err != nil {
		return model.Booking{}, err
	}
	bk, err := s.store.Bookings().FindActive(ctx, req.UserID, date)
	if err != nil {
		return model.Booking{}, storageErr("find active booking", err)
	}
	if _, err := s.store.Ledger().Ensure(ctx, date); err != nil {
		return model.Booking{}, storageErr("ensure inventory", err)
	}

	if err := s.run(func(ex executor) error { return ex.cancel(ctx, bk) }); err != nil {
		return model.Booking{}, storageErr("cancel", s.lostCancel(ctx, bk, err))
	}

	now := s.clock.Now()
	bk.Status = model.StatusCancelled
	bk.UpdatedAt = now.UTC()
	s.log.Info().
		Uint64("booking_id", bk.ID).
		Uint64("user_id", bk.UserID).
		Str("date", model.FormatDate(date)).
		Str("seat_type", string(bk.SeatType)).
		Msg("booking cancelled")
	s.publish(ctx, queue.NewSeatCancelledEvent(bk, now))
	return bk, nil
}

// lostCancel reports a refused seat release as model.ErrBookingNotFound
// when a concurrent cancellation already finished the booking.
func (s *BookingService) lostCancel(ctx context.Context, bk model.Booking, err error) error {
	if !errors.Is(err, repository.ErrLedgerConflict) {
		return err
	}
	if _, ferr := s.store.Bookings().FindActive(ctx, bk.UserID, bk.Date); errors.Is(ferr, model.ErrBookingNotFound) {
		return ferr
	}
	return err
}

// Availability returns the remaining seats of both pools on date, creating
// the day's inventory on first access.
func (s *BookingService) Availability(ctx context.Context, date string) (model.Availability, error) {
	d, err := model.ParseDate(date, s.Location())
	if err != nil {
		return model.Availability{}, err
	}
	inv, err := s.store.Ledger().Ensure(ctx, d)
	if err != nil {
		return model.Availability{}, storageErr("availability", err)
	}
	return inv.Availability(), nil
}

// EligibilityResult is the classifier decision for one user and day.
// DayBatch is empty on closed days.
type EligibilityResult struct {
	Date      time.Time
	UserID    uint64
	UserBatch model.Batch
	DayBatch  model.Batch
	schedule.Decision
}

// Eligibility reports whether userID may book date right now.  It never
// looks at capacity.
func (s *BookingService) Eligibility(ctx context.Context, userID uint64, date string) (EligibilityResult, error) {
	d, err := s.parseRequest(BookRequest{UserID: userID, Date: date})
	if err != nil {
		return EligibilityResult{}, err
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return EligibilityResult{}, err
	}
	dayBatch, _ := s.classifier.Resolver().Resolve(d)
	return EligibilityResult{
		Date:      d,
		UserID:    user.ID,
		UserBatch: user.Batch,
		DayBatch:  dayBatch,
		Decision:  s.classifier.Classify(d, user.Batch, s.clock.Now()),
	}, nil
}

// ListRequest selects a user's bookings.  Past days and cancelled bookings
// are left out unless asked for.
type ListRequest struct {
	UserID           uint64
	IncludePast      bool
	IncludeCancelled bool
}

// ListBookings returns the user's bookings ascending by date.
func (s *BookingService) ListBookings(ctx context.Context, req ListRequest) ([]model.Booking, error) {
	if req.UserID == 0 {
		return nil, fmt.Errorf("%w: user_id is required", model.ErrValidation)
	}
	f := repository.ListFilter{IncludeCancelled: req.IncludeCancelled}
	if !req.IncludePast {
		today := model.DateOf(s.clock.Now(), s.Location())
		f.From = &today
	}
	out, err := s.store.Bookings().ListByUser(ctx, req.UserID, f)
	if err != nil {
		return nil, storageErr("list bookings", err)
	}
	return out, nil
}

// AdjustBufferCapacity changes a day's buffer base capacity by delta.  It
// is an administrative operation outside the booking protocol.
func (s *BookingService) AdjustBufferCapacity(ctx context.Context, date string, delta int) (model.SeatInventory, error) {
	d, err := model.ParseDate(date, s.Location())
	if err != nil {
		return model.SeatInventory{}, err
	}
	if delta == 0 {
		return model.SeatInventory{}, fmt.Errorf("%w: delta must be non-zero", model.ErrValidation)
	}
	if _, err := s.store.Ledger().Ensure(ctx, d); err != nil {
		return model.SeatInventory{}, storageErr("ensure inventory", err)
	}
	inv, err := s.store.Ledger().AdjustBufferBase(ctx, d, delta)
	if err != nil {
		return model.SeatInventory{}, storageErr("adjust buffer", err)
	}
	s.log.Info().Str("date", model.FormatDate(d)).Int("delta", delta).
		Int("buffer_base_capacity", inv.BufferBaseCapacity).Msg("buffer capacity adjusted")
	return inv, nil
}

// Schedule renders the rotation between from and to inclusive.
func (s *BookingService) Schedule(from, to string) ([]schedule.Day, error) {
	f, err := model.ParseDate(from, s.Location())
	if err != nil {
		return nil, err
	}
	t, err := model.ParseDate(to, s.Location())
	if err != nil {
		return nil, err
	}
	return s.classifier.Resolver().Calendar(f, t)
}

// Reset wipes all bookings and inventory.
func (s *BookingService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return storageErr("reset", err)
	}
	s.log.Warn().Msg("all bookings and inventory deleted")
	return nil
}

// run executes fn with the transactional executor and falls back to the
// compensating one when the store signals it has no transactions.  The
// fallback retries the whole unit; the failed attempt persisted nothing.
func (s *BookingService) run(fn func(executor) error) error {
	if !s.noTx.Load() {
		err := fn(s.tx)
		if !errors.Is(err, repository.ErrTxUnsupported) {
			return err
		}
		if s.noTx.CompareAndSwap(false, true) {
			s.log.Warn().Msg("store does not support transactions; using compensating executor")
		}
	}
	return fn(s.comp)
}

func (s *BookingService) parseRequest(req BookRequest) (time.Time, error) {
	if req.UserID == 0 {
		return time.Time{}, fmt.Errorf("%w: user_id is required", model.ErrValidation)
	}
	return model.ParseDate(req.Date, s.Location())
}

func (s *BookingService) user(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, storageErr("find user", err)
	}
	if !u.Batch.Valid() {
		return model.User{}, fmt.Errorf("%w: user %d has no valid batch", model.ErrValidation, id)
	}
	return u, nil
}

func (s *BookingService) publish(ctx context.Context, ev queue.Event) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("queue", ev.QueueName()).Msg("event publish failed")
	}
}

// storageErr passes taxonomy errors through and wraps anything else as a
// storage failure of op.
func storageErr(op string, err error) error {
	for _, known := range []error{
		model.ErrValidation,
		model.ErrIneligible,
		model.ErrDuplicateBooking,
		model.ErrCapacityExhausted,
		model.ErrBookingNotFound,
		model.ErrUserNotFound,
		model.ErrStorage,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &model.StorageError{Op: op, Err: err}
}
