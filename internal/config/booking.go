package config

import (
    "fmt"
    "time"

    "github.com/iliyamo/office-seat-booking/internal/model"
    "github.com/iliyamo/office-seat-booking/internal/repository"
    "github.com/iliyamo/office-seat-booking/internal/schedule"
)

// BookingConfig holds the rules of the seat engine.
//
//  APP_TIMEZONE                 reference zone for every date (default UTC)
//  SCHEDULE_REFERENCE_MONDAY    first Monday of rotation week 1
//  SEAT_DESIGNATED_CAPACITY     designated seats per new day
//  SEAT_BUFFER_CAPACITY         buffer base seats per new day
//  SEAT_DESIGNATED_WINDOW_DAYS  how far ahead designated seats open
//  SEAT_BUFFER_OPEN_HOUR        buffer opens at this hour the day before
//  SEAT_BUFFER_CLOSE_HOUR       buffer closes at this hour on the day
type BookingConfig struct {
    Location        *time.Location
    ReferenceMonday time.Time
    Capacities      repository.Defaults
    Policy          schedule.Policy
}

// LoadBookingConfig reads BookingConfig from the environment.  Unlike Load
// it reports problems as errors so callers (including tests) can decide.
func LoadBookingConfig() (BookingConfig, error) {
    loc, err := time.LoadLocation(envStr("APP_TIMEZONE", "UTC"))
    if err != nil {
        return BookingConfig{}, fmt.Errorf("APP_TIMEZONE: %w", err)
    }
    ref := schedule.DefaultReferenceMonday
    if v := envStr("SCHEDULE_REFERENCE_MONDAY", ""); v != "" {
        if ref, err = model.ParseDate(v, loc); err != nil {
            return BookingConfig{}, fmt.Errorf("SCHEDULE_REFERENCE_MONDAY: %w", err)
        }
        if ref.Weekday() != time.Monday {
            return BookingConfig{}, fmt.Errorf("SCHEDULE_REFERENCE_MONDAY: %s is a %s", v, ref.Weekday())
        }
    }

    def := schedule.DefaultPolicy()
    cfg := BookingConfig{
        Location:        loc,
        ReferenceMonday: ref,
        Capacities: repository.Defaults{
            DesignatedCapacity: envInt("SEAT_DESIGNATED_CAPACITY", model.DefaultDesignatedCapacity),
            BufferCapacity:     envInt("SEAT_BUFFER_CAPACITY", model.DefaultBufferCapacity),
        },
        Policy: schedule.Policy{
            DesignatedWindowDays: envInt("SEAT_DESIGNATED_WINDOW_DAYS", def.DesignatedWindowDays),
            BufferOpenHour:       envInt("SEAT_BUFFER_OPEN_HOUR", def.BufferOpenHour),
            BufferCloseHour:      envInt("SEAT_BUFFER_CLOSE_HOUR", def.BufferCloseHour),
        },
    }
    if cfg.Capacities.DesignatedCapacity < 0 || cfg.Capacities.BufferCapacity < 0 {
        return BookingConfig{}, fmt.Errorf("seat capacities must not be negative")
    }
    if cfg.Policy.DesignatedWindowDays < 0 {
        return BookingConfig{}, fmt.Errorf("SEAT_DESIGNATED_WINDOW_DAYS must not be negative")
    }
    for name, h := range map[string]int{
        "SEAT_BUFFER_OPEN_HOUR":  cfg.Policy.BufferOpenHour,
        "SEAT_BUFFER_CLOSE_HOUR": cfg.Policy.BufferCloseHour,
    } {
        if h < 0 || h > 23 {
            return BookingConfig{}, fmt.Errorf("%s must be between 0 and 23, got %d", name, h)
        }
    }
    return cfg, nil
}

// Classifier builds the schedule classifier described by c.
func (c BookingConfig) Classifier() (*schedule.Classifier, error) {
    r, err := schedule.NewResolver(c.ReferenceMonday, c.Location)
    if err != nil {
        return nil, err
    }
    return schedule.NewClassifier(r, c.Policy), nil
}
