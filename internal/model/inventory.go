package model

import "time"

// Default capacities used when a date's inventory is created lazily.
const (
    DefaultDesignatedCapacity = 40
    DefaultBufferCapacity     = 10
)

// SeatInventory mirrors the seat_inventory table: one row per calendar day
// holding the capacities and consumed counts of both pools.
//
// DesignatedReleasedToBuffer counts capacity units that moved from the
// designated pool into the buffer pool because a designated holder
// cancelled.  The move is permanent: DesignatedCapacity shrinks by the same
// amount.
type SeatInventory struct {
    Date                       time.Time
    DesignatedCapacity         int
    BufferBaseCapacity         int
    DesignatedBooked           int
    BufferBooked               int
    DesignatedReleasedToBuffer int
}

// BufferCapacity is the effective buffer pool size.
func (s SeatInventory) BufferCapacity() int {
    return s.BufferBaseCapacity + s.DesignatedReleasedToBuffer
}

// Availability derives the remaining seats of both pools.
func (s SeatInventory) Availability() Availability {
    bufferCap := s.BufferCapacity()
    return Availability{
        Date:                s.Date,
        DesignatedRemaining: max(s.DesignatedCapacity-s.DesignatedBooked, 0),
        BufferRemaining:     max(bufferCap-s.BufferBooked, 0),
        DesignatedCapacity:  s.DesignatedCapacity,
        BufferCapacity:      bufferCap,
    }
}

// Availability is the read model returned to callers.  Remaining counts are
// never negative.
type Availability struct {
    Date                time.Time
    DesignatedRemaining int
    BufferRemaining     int
    DesignatedCapacity  int
    BufferCapacity      int
}
