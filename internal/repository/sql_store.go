package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/clock"
	"github.com/iliyamo/office-seat-booking/internal/model"
)

// Options configures a Store backend.
//
//	Location  – reference time zone dates are normalised to (default UTC).
//	Defaults  – capacities of lazily created inventory rows.
//	Clock     – source of created_at/updated_at (default real clock).
//	DisableTx – make InTx report ErrTxUnsupported (SQL only).
type Options struct {
	Location  *time.Location
	Defaults  Defaults
	Clock     clock.Clock
	DisableTx bool
}

func (o Options) normalize() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Defaults == (Defaults{}) {
		o.Defaults = DefaultCapacities()
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	return o
}

// SQLStore implements Store on MySQL or SQLite.  A store returned from
// InTx shares the same type but routes every query through the open
// transaction.
type SQLStore struct {
	db      *sql.DB
	q       DBTX
	dialect Dialect
	opts    Options
	inTx    bool
}

// NewSQLStore wraps db.  The schema must already exist (see
// database.Migrate).
func NewSQLStore(db *sql.DB, dialect Dialect, opts Options) *SQLStore {
	return &SQLStore{db: db, q: db, dialect: dialect, opts: opts.normalize()}
}

func (s *SQLStore) Ledger() Ledger { return (*sqlLedger)(s) }

func (s *SQLStore) Bookings() BookingStore { return (*sqlBookings)(s) }

// InTx follows the usual begin / deferred rollback / commit sequence.
// Nested calls reuse the outer transaction.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.opts.DisableTx {
		return ErrTxUnsupported
	}
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	scoped := &SQLStore{db: s.db, q: tx, dialect: s.dialect, opts: s.opts, inTx: true}
	if err := fn(scoped); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Reset removes all bookings and inventory rows.  Users are kept.
func (s *SQLStore) Reset(ctx context.Context) error {
	for _, q := range []string{`DELETE FROM bookings`, `DELETE FROM seat_inventory`} {
		if _, err := s.q.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// day normalises t to the stored date key.
func (s *SQLStore) day(t time.Time) string {
	return model.FormatDate(model.DateOf(t, s.opts.Location))
}

func (s *SQLStore) parseDay(v string) (time.Time, error) {
	return model.ParseDate(v, s.opts.Location)
}

func (s *SQLStore) now() int64 { return s.opts.Clock.Now().Unix() }
