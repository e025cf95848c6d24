// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/office-seat-booking/internal/model"
)

// Queue names.  Routing uses the default exchange, so routing key = queue.
const (
    SeatBookedQueue    = "seat.booked"
    SeatCancelledQueue = "seat.cancelled"
)

// Event is anything the Publisher can send.
type Event interface {
    QueueName() string
}

// SeatBookedEvent is published after a booking commits.  It contains enough
// information for downstream consumers to log, notify, or trigger analytics
// without querying the primary database.
type SeatBookedEvent struct {
    EventID   string `json:"event_id"`
    BookingID uint64 `json:"booking_id"`
    UserID    uint64 `json:"user_id"`
    UserBatch string `json:"user_batch"`
    Date      string `json:"date"`
    SeatType  string `json:"seat_type"`
    BookedAt  string `json:"booked_at"`
}

func (SeatBookedEvent) QueueName() string { return SeatBookedQueue }

// SeatCancelledEvent is published after a cancellation commits.
// CapacityMigrated is true when the freed seat moved into the buffer pool.
type SeatCancelledEvent struct {
    EventID          string `json:"event_id"`
    BookingID        uint64 `json:"booking_id"`
    UserID           uint64 `json:"user_id"`
    Date             string `json:"date"`
    SeatType         string `json:"seat_type"`
    CapacityMigrated bool   `json:"capacity_migrated"`
    CancelledAt      string `json:"cancelled_at"`
}

func (SeatCancelledEvent) QueueName() string { return SeatCancelledQueue }

// NewSeatBookedEvent builds the event for b.
func NewSeatBookedEvent(b model.Booking, at time.Time) SeatBookedEvent {
    return SeatBookedEvent{
        EventID:   uuid.NewString(),
        BookingID: b.ID,
        UserID:    b.UserID,
        UserBatch: string(b.UserBatch),
        Date:      model.FormatDate(b.Date),
        SeatType:  string(b.SeatType),
        BookedAt:  at.UTC().Format(time.RFC3339),
    }
}

// NewSeatCancelledEvent builds the event for the cancelled booking b.
func NewSeatCancelledEvent(b model.Booking, at time.Time) SeatCancelledEvent {
    return SeatCancelledEvent{
        EventID:          uuid.NewString(),
        BookingID:        b.ID,
        UserID:           b.UserID,
        Date:             model.FormatDate(b.Date),
        SeatType:         string(b.SeatType),
        CapacityMigrated: b.SeatType == model.SeatDesignated,
        CancelledAt:      at.UTC().Format(time.RFC3339),
    }
}
