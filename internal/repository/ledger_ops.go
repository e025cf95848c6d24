package repository

import (
	"fmt"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// ledgerOp names one conditional mutation of a SeatInventory record.
type ledgerOp int

const (
	opClaimDesignated ledgerOp = iota
	opClaimBuffer
	opReleaseDesignated
	opReleaseBuffer
	opRollbackClaimDesignated
	opRollbackClaimBuffer
	opRollbackReleaseDesignated
	opRollbackReleaseBuffer
	opAdjustBufferBase
)

// ledgerDelta is the change an op applies to each counter.  Every backend
// applies the whole delta in one atomic step, guarded by the condition that
// the resulting record still satisfies:
//
//	all counters >= 0
//	designated_booked <= designated_capacity
//	buffer_booked     <= buffer_base_capacity + designated_released_to_buffer
//
// For the two claims that guard is exactly "a free seat exists"; for the
// releases and rollbacks it stops the ledger drifting below zero.
type ledgerDelta struct {
	DesignatedBooked   int
	BufferBooked       int
	DesignatedCapacity int
	BufferBase         int
	ReleasedToBuffer   int
}

func (o ledgerOp) String() string {
	switch o {
	case opClaimDesignated:
		return "claim designated"
	case opClaimBuffer:
		return "claim buffer"
	case opReleaseDesignated:
		return "release designated"
	case opReleaseBuffer:
		return "release buffer"
	case opRollbackClaimDesignated:
		return "rollback claim designated"
	case opRollbackClaimBuffer:
		return "rollback claim buffer"
	case opRollbackReleaseDesignated:
		return "rollback release designated"
	case opRollbackReleaseBuffer:
		return "rollback release buffer"
	case opAdjustBufferBase:
		return "adjust buffer base"
	}
	return fmt.Sprintf("ledger op %d", int(o))
}

// delta returns the counter changes of o.  n is only used by
// opAdjustBufferBase.
func (o ledgerOp) delta(n int) ledgerDelta {
	switch o {
	case opClaimDesignated:
		return ledgerDelta{DesignatedBooked: 1}
	case opClaimBuffer:
		return ledgerDelta{BufferBooked: 1}
	case opReleaseDesignated:
		// The vacated designated seat becomes a standing buffer seat.
		return ledgerDelta{DesignatedBooked: -1, DesignatedCapacity: -1, ReleasedToBuffer: 1}
	case opReleaseBuffer:
		return ledgerDelta{BufferBooked: -1}
	case opRollbackClaimDesignated:
		return ledgerDelta{DesignatedBooked: -1}
	case opRollbackClaimBuffer:
		return ledgerDelta{BufferBooked: -1}
	case opRollbackReleaseDesignated:
		return ledgerDelta{DesignatedBooked: 1, DesignatedCapacity: 1, ReleasedToBuffer: -1}
	case opRollbackReleaseBuffer:
		return ledgerDelta{BufferBooked: 1}
	case opAdjustBufferBase:
		return ledgerDelta{BufferBase: n}
	}
	return ledgerDelta{}
}

// rejected converts a failed guard into the error callers expect.
func (o ledgerOp) rejected(date string) error {
	switch o {
	case opClaimDesignated, opClaimBuffer:
		return fmt.Errorf("%w: %s on %s", model.ErrCapacityExhausted, o, date)
	case opAdjustBufferBase:
		return fmt.Errorf("%w: buffer base capacity for %s cannot go below zero or below booked buffer seats", model.ErrValidation, date)
	}
	return fmt.Errorf("%w: %s on %s", ErrLedgerConflict, o, date)
}

// applyDelta computes the record d produces and reports whether it passes
// the guard.  The SQL statement and the Lua script evaluate the same
// condition inside the store.
func applyDelta(inv model.SeatInventory, d ledgerDelta) (model.SeatInventory, bool) {
	inv.DesignatedBooked += d.DesignatedBooked
	inv.BufferBooked += d.BufferBooked
	inv.DesignatedCapacity += d.DesignatedCapacity
	inv.BufferBaseCapacity += d.BufferBase
	inv.DesignatedReleasedToBuffer += d.ReleasedToBuffer
	ok := inv.DesignatedBooked >= 0 &&
		inv.BufferBooked >= 0 &&
		inv.DesignatedCapacity >= 0 &&
		inv.BufferBaseCapacity >= 0 &&
		inv.DesignatedReleasedToBuffer >= 0 &&
		inv.DesignatedBooked <= inv.DesignatedCapacity &&
		inv.BufferBooked <= inv.BufferCapacity()
	return inv, ok
}
