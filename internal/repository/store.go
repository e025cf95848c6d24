package repository

import (
	"context"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// Ledger is the per-date seat inventory.  Every mutator is a single atomic
// conditional update against the stored record: the guard and the change
// are applied together or not at all.
type Ledger interface {
	// Ensure returns the inventory for date, creating it with the default
	// capacities when it does not exist yet.
	Ensure(ctx context.Context, date time.Time) (model.SeatInventory, error)
	// Get returns ErrInventoryNotFound when no row exists.
	Get(ctx context.Context, date time.Time) (model.SeatInventory, error)

	ClaimDesignated(ctx context.Context, date time.Time) error
	ClaimBuffer(ctx context.Context, date time.Time) error
	ReleaseDesignated(ctx context.Context, date time.Time) error
	ReleaseBuffer(ctx context.Context, date time.Time) error

	RollbackClaimDesignated(ctx context.Context, date time.Time) error
	RollbackClaimBuffer(ctx context.Context, date time.Time) error
	RollbackReleaseDesignated(ctx context.Context, date time.Time) error
	RollbackReleaseBuffer(ctx context.Context, date time.Time) error

	// AdjustBufferBase adds delta to the buffer base capacity.  The change
	// is rejected with model.ErrValidation when it would leave the base
	// negative or below the seats already booked from the buffer pool.
	AdjustBufferBase(ctx context.Context, date time.Time, delta int) (model.SeatInventory, error)
}

// ListFilter narrows ListByUser.  From is inclusive; nil means no lower
// bound.
type ListFilter struct {
	From             *time.Time
	IncludeCancelled bool
}

// BookingStore owns the booking records.  It enforces that a user holds at
// most one booked record per date.
type BookingStore interface {
	// FindActive returns the user's booked record for date or
	// model.ErrBookingNotFound.
	FindActive(ctx context.Context, userID uint64, date time.Time) (model.Booking, error)
	// Create persists b with status booked and fills ID and timestamps.  A
	// second booked record for the same user and date is rejected with
	// model.ErrDuplicateBooking.
	Create(ctx context.Context, b *model.Booking) error
	// MarkCancelled flips a booked record to cancelled.  It returns
	// model.ErrBookingNotFound when the record is missing or no longer
	// booked, which makes concurrent cancellations of one booking safe.
	MarkCancelled(ctx context.Context, id uint64) error
	// BeginRelease marks a booked record as having its seat released.  Only
	// one caller holds the mark at a time; others get model.ErrBookingNotFound
	// until AbortRelease, MarkCancelled or the ReleaseLease expires.
	BeginRelease(ctx context.Context, id uint64) error
	// AbortRelease clears the mark after the seat release was undone.
	AbortRelease(ctx context.Context, id uint64) error
	// ListByUser returns bookings ascending by date.
	ListByUser(ctx context.Context, userID uint64, f ListFilter) ([]model.Booking, error)
}

// ReleaseLease bounds how long a release mark survives a caller that died
// between BeginRelease and MarkCancelled.
const ReleaseLease = time.Minute

// Store groups the two collections behind one transaction boundary.
type Store interface {
	Ledger() Ledger
	Bookings() BookingStore
	// InTx runs fn against a store scoped to one transaction.  fn's error
	// rolls everything back.  Backends without transactions return
	// ErrTxUnsupported without calling fn.
	InTx(ctx context.Context, fn func(tx Store) error) error
	// Reset deletes every booking and inventory record.  It is an
	// administrative operation.
	Reset(ctx context.Context) error
}

// UserDirectory resolves users for the booking engine.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Defaults are the capacities assigned to a date's inventory on first use.
type Defaults struct {
	DesignatedCapacity int
	BufferCapacity     int
}

// DefaultCapacities returns the standard 40 designated / 10 buffer split.
func DefaultCapacities() Defaults {
	return Defaults{
		DesignatedCapacity: model.DefaultDesignatedCapacity,
		BufferCapacity:     model.DefaultBufferCapacity,
	}
}
