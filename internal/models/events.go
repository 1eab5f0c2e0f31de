package models

import "time"

// Routing keys of the domain events published by the booking lifecycle.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is the payload of every booking lifecycle event. Rewards and
// notification scheduling subscribe to booking.confirmed.
type BookingEvent struct {
	BookingID        string        `json:"booking_id"`
	UserID           string        `json:"user_id"`
	DestinationID    string        `json:"destination_id"`
	SlotID           string        `json:"slot_id"`
	Pax              int           `json:"pax"`
	Status           BookingStatus `json:"status"`
	ConfirmationCode string        `json:"confirmation_code,omitempty"`
	OccurredAt       time.Time     `json:"occurred_at"`
}

// NewBookingEvent snapshots a booking into an event payload
func NewBookingEvent(b *Booking, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:        b.ID,
		UserID:           b.UserID,
		DestinationID:    b.DestinationID,
		SlotID:           b.SlotID,
		Pax:              b.Pax,
		Status:           b.Status,
		ConfirmationCode: b.ConfirmationCode,
		OccurredAt:       at,
	}
}
