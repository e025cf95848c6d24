package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// sqlLedger is the seat_inventory side of SQLStore.
type sqlLedger SQLStore

const inventorySelect = `SELECT inventory_date, designated_capacity, buffer_base_capacity,
       designated_booked, buffer_booked, designated_released_to_buffer
FROM seat_inventory WHERE inventory_date = ?`

// applyDeltaSQL adds a ledgerDelta to one row.  The WHERE clause is the
// invariant guard evaluated against the values the row would hold after the
// update; the row lock taken by UPDATE makes guard and write one step.
const applyDeltaSQL = `UPDATE seat_inventory SET
    designated_booked = designated_booked + ?,
    buffer_booked = buffer_booked + ?,
    designated_capacity = designated_capacity + ?,
    buffer_base_capacity = buffer_base_capacity + ?,
    designated_released_to_buffer = designated_released_to_buffer + ?,
    updated_at = ?
WHERE inventory_date = ?
  AND designated_booked + ? >= 0
  AND buffer_booked + ? >= 0
  AND designated_capacity + ? >= 0
  AND buffer_base_capacity + ? >= 0
  AND designated_released_to_buffer + ? >= 0
  AND designated_booked + ? <= designated_capacity + ?
  AND buffer_booked + ? <= buffer_base_capacity + ? + designated_released_to_buffer + ?`

func (l *sqlLedger) store() *SQLStore { return (*SQLStore)(l) }

func (l *sqlLedger) Ensure(ctx context.Context, date time.Time) (model.SeatInventory, error) {
	s := l.store()
	now := s.now()
	q := s.dialect.insertIgnore() + ` INTO seat_inventory
    (inventory_date, designated_capacity, buffer_base_capacity, designated_booked, buffer_booked,
     designated_released_to_buffer, created_at, updated_at)
VALUES (?, ?, ?, 0, 0, 0, ?, ?)`
	if _, err := s.q.ExecContext(ctx, q, s.day(date), s.opts.Defaults.DesignatedCapacity, s.opts.Defaults.BufferCapacity, now, now); err != nil {
		return model.SeatInventory{}, err
	}
	return l.Get(ctx, date)
}

func (l *sqlLedger) Get(ctx context.Context, date time.Time) (model.SeatInventory, error) {
	s := l.store()
	var (
		inv model.SeatInventory
		key string
	)
	err := s.q.QueryRowContext(ctx, inventorySelect, s.day(date)).Scan(
		&key, &inv.DesignatedCapacity, &inv.BufferBaseCapacity,
		&inv.DesignatedBooked, &inv.BufferBooked, &inv.DesignatedReleasedToBuffer)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SeatInventory{}, ErrInventoryNotFound
	}
	if err != nil {
		return model.SeatInventory{}, err
	}
	if inv.Date, err = s.parseDay(key); err != nil {
		return model.SeatInventory{}, err
	}
	return inv, nil
}

func (l *sqlLedger) ClaimDesignated(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opClaimDesignated, 0)
}

func (l *sqlLedger) ClaimBuffer(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opClaimBuffer, 0)
}

func (l *sqlLedger) ReleaseDesignated(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opReleaseDesignated, 0)
}

func (l *sqlLedger) ReleaseBuffer(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opReleaseBuffer, 0)
}

func (l *sqlLedger) RollbackClaimDesignated(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opRollbackClaimDesignated, 0)
}

func (l *sqlLedger) RollbackClaimBuffer(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opRollbackClaimBuffer, 0)
}

func (l *sqlLedger) RollbackReleaseDesignated(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opRollbackReleaseDesignated, 0)
}

func (l *sqlLedger) RollbackReleaseBuffer(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opRollbackReleaseBuffer, 0)
}

func (l *sqlLedger) AdjustBufferBase(ctx context.Context, date time.Time, delta int) (model.SeatInventory, error) {
	if err := l.apply(ctx, date, opAdjustBufferBase, delta); err != nil {
		return model.SeatInventory{}, err
	}
	return l.Get(ctx, date)
}

func (l *sqlLedger) apply(ctx context.Context, date time.Time, op ledgerOp, n int) error {
	s := l.store()
	key := s.day(date)
	d := op.delta(n)
	res, err := s.q.ExecContext(ctx, applyDeltaSQL,
		d.DesignatedBooked, d.BufferBooked, d.DesignatedCapacity, d.BufferBase, d.ReleasedToBuffer, s.now(),
		key,
		d.DesignatedBooked, d.BufferBooked, d.DesignatedCapacity, d.BufferBase, d.ReleasedToBuffer,
		d.DesignatedBooked, d.DesignatedCapacity,
		d.BufferBooked, d.BufferBase, d.ReleasedToBuffer,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}
	// Nothing matched: either the row is missing or the guard refused.
	if _, err := l.Get(ctx, date); err != nil {
		return err
	}
	return op.rejected(key)
}
