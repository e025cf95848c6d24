package handler

import (
    "github.com/iliyamo/office-seat-booking/internal/model"
    "github.com/iliyamo/office-seat-booking/internal/schedule"
    "github.com/iliyamo/office-seat-booking/internal/service"
)

type bookingResponse struct {
    ID        uint64 `json:"id"`
    UserID    uint64 `json:"user_id"`
    UserBatch string `json:"user_batch"`
    Date      string `json:"date"`
    Status    string `json:"status"`
    SeatType  string `json:"seat_type"`
    CreatedAt int64  `json:"created_at"`
    UpdatedAt int64  `json:"updated_at"`
}

func toBooking(b model.Booking) bookingResponse {
    return bookingResponse{
        ID:        b.ID,
        UserID:    b.UserID,
        UserBatch: string(b.UserBatch),
        Date:      model.FormatDate(b.Date),
        Status:    string(b.Status),
        SeatType:  string(b.SeatType),
        CreatedAt: b.CreatedAt.Unix(),
        UpdatedAt: b.UpdatedAt.Unix(),
    }
}

type availabilityResponse struct {
    Date                string `json:"date"`
    DesignatedRemaining int    `json:"designated_remaining"`
    BufferRemaining     int    `json:"buffer_remaining"`
    DesignatedCapacity  int    `json:"designated_capacity"`
    BufferCapacity      int    `json:"buffer_capacity"`
}

func toAvailability(a model.Availability) availabilityResponse {
    return availabilityResponse{
        Date:                model.FormatDate(a.Date),
        DesignatedRemaining: a.DesignatedRemaining,
        BufferRemaining:     a.BufferRemaining,
        DesignatedCapacity:  a.DesignatedCapacity,
        BufferCapacity:      a.BufferCapacity,
    }
}

type inventoryResponse struct {
    Date                       string `json:"date"`
    DesignatedCapacity         int    `json:"designated_capacity"`
    BufferBaseCapacity         int    `json:"buffer_base_capacity"`
    DesignatedBooked           int    `json:"designated_booked"`
    BufferBooked               int    `json:"buffer_booked"`
    DesignatedReleasedToBuffer int    `json:"designated_released_to_buffer"`
}

func toInventory(inv model.SeatInventory) inventoryResponse {
    return inventoryResponse{
        Date:                       model.FormatDate(inv.Date),
        DesignatedCapacity:         inv.DesignatedCapacity,
        BufferBaseCapacity:         inv.BufferBaseCapacity,
        DesignatedBooked:           inv.DesignatedBooked,
        BufferBooked:               inv.BufferBooked,
        DesignatedReleasedToBuffer: inv.DesignatedReleasedToBuffer,
    }
}

type eligibilityResponse struct {
    Date      string `json:"date"`
    UserID    uint64 `json:"user_id"`
    UserBatch string `json:"user_batch"`
    DayBatch  string `json:"day_batch,omitempty"`
    Eligible  bool   `json:"eligible"`
    SeatType  string `json:"seat_type,omitempty"`
    Reason    string `json:"reason,omitempty"`
}

func toEligibility(r service.EligibilityResult) eligibilityResponse {
    return eligibilityResponse{
        Date:      model.FormatDate(r.Date),
        UserID:    r.UserID,
        UserBatch: string(r.UserBatch),
        DayBatch:  string(r.DayBatch),
        Eligible:  r.Eligible,
        SeatType:  string(r.SeatType),
        Reason:    r.Reason,
    }
}

type dayResponse struct {
    Date    string `json:"date"`
    Weekday string `json:"weekday"`
    Week    int    `json:"week"`
    Open    bool   `json:"open"`
    Batch   string `json:"designated_batch,omitempty"`
}

func toDays(days []schedule.Day) []dayResponse {
    out := make([]dayResponse, 0, len(days))
    for _, d := range days {
        out = append(out, dayResponse{
            Date:    model.FormatDate(d.Date),
            Weekday: d.Date.Weekday().String(),
            Week:    d.Week,
            Open:    d.Open,
            Batch:   string(d.Batch),
        })
    }
    return out
}
