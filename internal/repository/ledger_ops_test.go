package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

func TestApplyDeltaGuard(t *testing.T) {
	full := model.SeatInventory{DesignatedCapacity: 2, BufferBaseCapacity: 1, DesignatedBooked: 2, BufferBooked: 1}
	empty := model.SeatInventory{DesignatedCapacity: 2, BufferBaseCapacity: 1}

	tests := []struct {
		name string
		inv  model.SeatInventory
		op   ledgerOp
		n    int
		ok   bool
	}{
		{"claim designated with room", empty, opClaimDesignated, 0, true},
		{"claim designated when full", full, opClaimDesignated, 0, false},
		{"claim buffer when full", full, opClaimBuffer, 0, false},
		{"release designated", full, opReleaseDesignated, 0, true},
		{"release designated when none booked", empty, opReleaseDesignated, 0, false},
		{"release buffer when none booked", empty, opReleaseBuffer, 0, false},
		{"rollback release designated without migration", full, opRollbackReleaseDesignated, 0, false},
		{"adjust buffer below booked", full, opAdjustBufferBase, -1, false},
		{"adjust buffer up", full, opAdjustBufferBase, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := applyDelta(tt.inv, tt.op.delta(tt.n))
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestReleaseDesignatedThenClaimBufferFitsInvariants(t *testing.T) {
	inv := model.SeatInventory{DesignatedCapacity: 40, BufferBaseCapacity: 10, DesignatedBooked: 40, BufferBooked: 10}
	inv, ok := applyDelta(inv, opReleaseDesignated.delta(0))
	assert.True(t, ok)
	assert.Equal(t, 11, inv.BufferCapacity())
	assert.Equal(t, 39, inv.DesignatedCapacity)

	inv, ok = applyDelta(inv, opClaimBuffer.delta(0))
	assert.True(t, ok)
	assert.Equal(t, 11, inv.BufferBooked)

	// The migrated seat is now taken, so undoing the release would overbook.
	_, ok = applyDelta(inv, opRollbackReleaseDesignated.delta(0))
	assert.False(t, ok)
}

func TestRejectedErrors(t *testing.T) {
	assert.ErrorIs(t, opClaimBuffer.rejected("2026-02-24"), model.ErrCapacityExhausted)
	assert.ErrorIs(t, opAdjustBufferBase.rejected("2026-02-24"), model.ErrValidation)
	assert.ErrorIs(t, opReleaseBuffer.rejected("2026-02-24"), ErrLedgerConflict)
	assert.Contains(t, opRollbackClaimDesignated.rejected("2026-02-24").Error(), "rollback claim designated")
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, isDuplicate(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.True(t, isDuplicate(errors.New("constraint failed: UNIQUE constraint failed: bookings.user_id")))
	assert.False(t, isDuplicate(errors.New("disk I/O error")))
	assert.False(t, isDuplicate(nil))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("MySQL")
	assert.NoError(t, err)
	assert.Equal(t, DialectMySQL, d)
	d, err = ParseDialect("sqlite3")
	assert.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)
	_, err = ParseDialect("postgres")
	assert.Error(t, err)
}
