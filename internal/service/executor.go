package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/office-seat-booking/internal/model"
	"github.com/iliyamo/office-seat-booking/internal/repository"
)

// executor runs the two-step booking and cancellation units.  The
// transactional and compensating variants call the same step helpers below
// so their business steps cannot drift apart.
type executor interface {
	book(ctx context.Context, bk model.Booking) (model.Booking, error)
	cancel(ctx context.Context, bk model.Booking) error
}

// ---- steps ----

func claim(ctx context.Context, l repository.Ledger, date time.Time, st model.SeatType) error {
	if st == model.SeatDesignated {
		return l.ClaimDesignated(ctx, date)
	}
	return l.ClaimBuffer(ctx, date)
}

func unclaim(ctx context.Context, l repository.Ledger, date time.Time, st model.SeatType) error {
	if st == model.SeatDesignated {
		return l.RollbackClaimDesignated(ctx, date)
	}
	return l.RollbackClaimBuffer(ctx, date)
}

func release(ctx context.Context, l repository.Ledger, date time.Time, st model.SeatType) error {
	if st == model.SeatDesignated {
		return l.ReleaseDesignated(ctx, date)
	}
	return l.ReleaseBuffer(ctx, date)
}

func unrelease(ctx context.Context, l repository.Ledger, date time.Time, st model.SeatType) error {
	if st == model.SeatDesignated {
		return l.RollbackReleaseDesignated(ctx, date)
	}
	return l.RollbackReleaseBuffer(ctx, date)
}

// ---- transactional ----

// txExecutor runs both steps inside Store.InTx.  Any failure rolls back the
// whole unit, so nothing needs compensating.
type txExecutor struct {
	store repository.Store
}

func (e txExecutor) book(ctx context.Context, bk model.Booking) (model.Booking, error) {
	err := e.store.InTx(ctx, func(tx repository.Store) error {
		if err := claim(ctx, tx.Ledger(), bk.Date, bk.SeatType); err != nil {
			return err
		}
		return tx.Bookings().Create(ctx, &bk)
	})
	return bk, err
}

func (e txExecutor) cancel(ctx context.Context, bk model.Booking) error {
	return e.store.InTx(ctx, func(tx repository.Store) error {
		if err := release(ctx, tx.Ledger(), bk.Date, bk.SeatType); err != nil {
			return err
		}
		return tx.Bookings().MarkCancelled(ctx, bk.ID)
	})
}

// ---- compensating ----

// compensatingExecutor runs the steps one at a time.  The ledger step goes
// first; when the booking step fails afterwards, the exact inverse ledger
// op is applied before the error is returned, so capacity is never left
// consumed without a booking (or freed while the booking stays active).
type compensatingExecutor struct {
	store repository.Store
	log   zerolog.Logger
}

func (e compensatingExecutor) book(ctx context.Context, bk model.Booking) (model.Booking, error) {
	l := e.store.Ledger()
	if err := claim(ctx, l, bk.Date, bk.SeatType); err != nil {
		return bk, err
	}
	if err := e.store.Bookings().Create(ctx, &bk); err != nil {
		e.compensate(ctx, "book", bk, err, func(ctx context.Context) error {
			return unclaim(ctx, l, bk.Date, bk.SeatType)
		})
		return bk, err
	}
	return bk, nil
}

// cancel takes the booking's release mark before touching the ledger.  Of
// several callers cancelling the same booking only the mark holder frees a
// seat; the rest see model.ErrBookingNotFound.
func (e compensatingExecutor) cancel(ctx context.Context, bk model.Booking) error {
	l, bs := e.store.Ledger(), e.store.Bookings()
	if err := bs.BeginRelease(ctx, bk.ID); err != nil {
		return err
	}
	if err := release(ctx, l, bk.Date, bk.SeatType); err != nil {
		e.abortRelease(ctx, bk, err)
		return err
	}
	if err := bs.MarkCancelled(ctx, bk.ID); err != nil {
		e.compensate(ctx, "cancel", bk, err, func(ctx context.Context) error {
			return unrelease(ctx, l, bk.Date, bk.SeatType)
		})
		e.abortRelease(ctx, bk, err)
		return err
	}
	return nil
}

// abortRelease drops the release mark so the booking can be cancelled
// again.  A mark left behind expires after repository.ReleaseLease.
func (e compensatingExecutor) abortRelease(ctx context.Context, bk model.Booking, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.store.Bookings().AbortRelease(ctx, bk.ID); err != nil {
		e.log.Warn().
			Uint64("booking_id", bk.ID).
			AnErr("cause", cause).
			AnErr("abort_error", err).
			Msg("release mark not cleared; it expires with its lease")
	}
}

// compensate runs undo detached from the request's cancellation so a
// client hanging up cannot leave the ledger half-updated.
func (e compensatingExecutor) compensate(ctx context.Context, op string, bk model.Booking, cause error, undo func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := undo(ctx); err != nil {
		e.log.Error().
			Str("op", op).
			Uint64("booking_id", bk.ID).
			Uint64("user_id", bk.UserID).
			Str("date", model.FormatDate(bk.Date)).
			Str("seat_type", string(bk.SeatType)).
			AnErr("cause", cause).
			AnErr("rollback_error", err).
			Msg("ledger rollback failed; inventory needs reconciliation")
		return
	}
	e.log.Warn().
		Str("op", op).
		Uint64("user_id", bk.UserID).
		Str("date", model.FormatDate(bk.Date)).
		Str("seat_type", string(bk.SeatType)).
		AnErr("cause", cause).
		Msg("record step failed after ledger update; ledger rolled back")
}
