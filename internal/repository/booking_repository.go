package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// sqlBookings is the bookings side of SQLStore.
//
// The table carries an `active` column that is 1 while a booking is booked
// and NULL once cancelled.  UNIQUE(user_id, booking_date, active) therefore
// admits one booked row per user and day next to any number of cancelled
// ones, since NULLs never collide in a unique index on MySQL or SQLite.
type sqlBookings SQLStore

const bookingColumns = `id, user_id, user_batch, booking_date, status, seat_type, created_at, updated_at`

func (b *sqlBookings) store() *SQLStore { return (*SQLStore)(b) }

func (b *sqlBookings) FindActive(ctx context.Context, userID uint64, date time.Time) (model.Booking, error) {
	s := b.store()
	row := s.q.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
         WHERE user_id = ? AND booking_date = ? AND status = 'booked' LIMIT 1`,
		userID, s.day(date))
	bk, err := b.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return bk, err
}

func (b *sqlBookings) Create(ctx context.Context, bk *model.Booking) error {
	s := b.store()
	now := s.now()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO bookings (user_id, user_batch, booking_date, status, seat_type, active, created_at, updated_at)
         VALUES (?, ?, ?, 'booked', ?, 1, ?, ?)`,
		bk.UserID, string(bk.UserBatch), s.day(bk.Date), string(bk.SeatType), now, now)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: user %d on %s", model.ErrDuplicateBooking, bk.UserID, s.day(bk.Date))
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	bk.ID = uint64(id)
	bk.Date = model.DateOf(bk.Date, s.opts.Location)
	bk.Status = model.StatusBooked
	bk.CreatedAt = time.Unix(now, 0).UTC()
	bk.UpdatedAt = bk.CreatedAt
	return nil
}

func (b *sqlBookings) MarkCancelled(ctx context.Context, id uint64) error {
	s := b.store()
	res, err := s.q.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', active = NULL, releasing_at = NULL, updated_at = ?
         WHERE id = ? AND status = 'booked'`,
		s.now(), id)
	if err != nil {
		return err
	}
	return b.expectOne(res, id)
}

// BeginRelease sets releasing_at.  A mark older than ReleaseLease belongs
// to a caller that never finished and may be taken over.
func (b *sqlBookings) BeginRelease(ctx context.Context, id uint64) error {
	s := b.store()
	now := s.now()
	res, err := s.q.ExecContext(ctx,
		`UPDATE bookings SET releasing_at = ?
         WHERE id = ? AND status = 'booked' AND (releasing_at IS NULL OR releasing_at <= ?)`,
		now, id, now-int64(ReleaseLease/time.Second))
	if err != nil {
		return err
	}
	return b.expectOne(res, id)
}

func (b *sqlBookings) AbortRelease(ctx context.Context, id uint64) error {
	_, err := b.store().q.ExecContext(ctx,
		`UPDATE bookings SET releasing_at = NULL WHERE id = ? AND status = 'booked'`, id)
	return err
}

func (b *sqlBookings) expectOne(res sql.Result, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: booking %d is not active", model.ErrBookingNotFound, id)
	}
	return nil
}

func (b *sqlBookings) ListByUser(ctx context.Context, userID uint64, f ListFilter) ([]model.Booking, error) {
	s := b.store()
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if f.From != nil {
		where = append(where, "booking_date >= ?")
		args = append(args, s.day(*f.From))
	}
	if !f.IncludeCancelled {
		where = append(where, "status = 'booked'")
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE `+strings.Join(where, " AND ")+
			` ORDER BY booking_date ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		bk, err := b.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (b *sqlBookings) scan(r scanner) (model.Booking, error) {
	var (
		bk                   model.Booking
		batch, day           string
		status, seatType     string
		createdAt, updatedAt int64
	)
	if err := r.Scan(&bk.ID, &bk.UserID, &batch, &day, &status, &seatType, &createdAt, &updatedAt); err != nil {
		return model.Booking{}, err
	}
	date, err := b.store().parseDay(day)
	if err != nil {
		return model.Booking{}, err
	}
	bk.UserBatch = model.Batch(batch)
	bk.Date = date
	bk.Status = model.BookingStatus(status)
	bk.SeatType = model.SeatType(seatType)
	bk.CreatedAt = time.Unix(createdAt, 0).UTC()
	bk.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return bk, nil
}
