package model

import (
    "fmt"
    "strings"
    "time"
)

// Batch identifies which of the two rotating employee groups a user belongs
// to.  The stored values ("B1", "B2") are what the user directory persists;
// BatchA and BatchB are the names used by the rotation schedule.
type Batch string

const (
    BatchA Batch = "B1" // favoured Mon–Wed on week-1 parity
    BatchB Batch = "B2" // favoured Thu–Fri on week-1 parity
)

// Valid reports whether b is one of the two known batches.
func (b Batch) Valid() bool { return b == BatchA || b == BatchB }

// ParseBatch normalises user input into a Batch.  Both the stored form
// ("B1"/"b2") and the schedule form ("A"/"B") are accepted.
func ParseBatch(s string) (Batch, error) {
    switch strings.ToUpper(strings.TrimSpace(s)) {
    case "B1", "A":
        return BatchA, nil
    case "B2", "B":
        return BatchB, nil
    }
    return "", fmt.Errorf("%w: unknown batch %q", ErrValidation, s)
}

// SeatType is the pool a booking consumes capacity from.
type SeatType string

const (
    SeatDesignated SeatType = "designated"
    SeatBuffer     SeatType = "buffer"
)

// BookingStatus is the lifecycle state of a booking.  Bookings are never
// deleted by the engine; cancelling flips the status.
type BookingStatus string

const (
    StatusBooked    BookingStatus = "booked"
    StatusCancelled BookingStatus = "cancelled"
)

// Booking represents one reservation of a seat for one calendar day.
//
// Fields:
//  ID        – primary key assigned by the store.
//  UserID    – owner of the reservation.
//  UserBatch – the user's batch at booking time.
//  Date      – midnight of the booked day in the reference time zone.
//  Status    – booked or cancelled.
//  SeatType  – designated or buffer.
//  CreatedAt – when the booking was written.
//  UpdatedAt – last status change.
type Booking struct {
    ID        uint64
    UserID    uint64
    UserBatch Batch
    Date      time.Time
    Status    BookingStatus
    SeatType  SeatType
    CreatedAt time.Time
    UpdatedAt time.Time
}

// Active reports whether the booking still holds a seat.
func (b Booking) Active() bool { return b.Status == StatusBooked }
