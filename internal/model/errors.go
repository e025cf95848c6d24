package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the engine, the stores and the HTTP layer.
// Each one maps to a stable code returned to clients (see Code).
var (
	ErrValidation        = errors.New("validation error")
	ErrIneligible        = errors.New("not eligible")
	ErrDuplicateBooking  = errors.New("already booked a seat for this date")
	ErrCapacityExhausted = errors.New("no seats available")
	ErrBookingNotFound   = errors.New("no booking found for this user on this date")
	ErrUserNotFound      = errors.New("user not found")
	ErrStorage           = errors.New("storage error")
)

// IneligibleError carries the classifier's reason.  SeatType is set when the
// user had a candidate seat type but a booking window rule rejected it.
type IneligibleError struct {
	Reason   string
	SeatType SeatType
}

func (e *IneligibleError) Error() string { return "not eligible: " + e.Reason }

func (e *IneligibleError) Is(target error) bool { return target == ErrIneligible }

// StorageError wraps an unexpected failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Code returns the stable reason code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrIneligible):
		return "ineligible"
	case errors.Is(err, ErrDuplicateBooking):
		return "duplicate_booking"
	case errors.Is(err, ErrCapacityExhausted):
		return "capacity_exhausted"
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrUserNotFound):
		return "not_found"
	default:
		return "storage_error"
	}
}
