package models

import (
	"regexp"
	"strings"
	"time"
)

// ============================================================================
// BOOKING STATUSES
// ============================================================================

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending         BookingStatus = "pending"
	BookingStatusAwaitingPayment BookingStatus = "awaiting_payment" // Seats held, waiting for payment
	BookingStatusPaid            BookingStatus = "paid"             // Payment approved, confirmation code issued
	BookingStatusCancelled       BookingStatus = "cancelled"        // Seats released
)

// IsTerminal reports whether no further transition is allowed
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusPaid || s == BookingStatusCancelled
}

// HoldsSeats reports whether a booking in this status counts against its slot
func (s BookingStatus) HoldsSeats() bool {
	return s == BookingStatusAwaitingPayment || s == BookingStatusPaid
}

// ============================================================================
// BOOKING MODEL (bookings table)
// ============================================================================

// Booking is a customer's reservation of Pax seats on a tour slot
type Booking struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	DestinationID string    `json:"destination_id" db:"destination_id"`
	SlotID        string    `json:"slot_id" db:"slot_id"`
	TravelDate    time.Time `json:"travel_date" db:"travel_date"`
	StartTime     string    `json:"start_time" db:"start_time"` // "09:30"
	Pax           int       `json:"pax" db:"pax"`

	// Snapshotted at creation; later catalog price changes do not apply
	TotalPrice float64 `json:"total_price" db:"total_price"`
	Currency   string  `json:"currency" db:"currency"`

	Status           BookingStatus `json:"status" db:"status"`
	ConfirmationCode string        `json:"confirmation_code,omitempty" db:"confirmation_code"`
	PaymentMethod    PaymentMethod `json:"payment_method,omitempty" db:"payment_method"`

	IdempotencyKey *string `json:"-" db:"idempotency_key"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// CanConfirmPayment checks if a payment outcome may still move the booking
func (b *Booking) CanConfirmPayment() bool {
	return b.Status == BookingStatusAwaitingPayment
}

// CanCancel checks if the booking may be cancelled
func (b *Booking) CanCancel() bool {
	return b.Status == BookingStatusAwaitingPayment
}

// ============================================================================
// REQUEST/RESPONSE STRUCTS
// ============================================================================

var startTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// CreateBookingRequest is the request to create a booking
type CreateBookingRequest struct {
	UserID         string  `json:"user_id" binding:"required"`
	DestinationID  string  `json:"destination_id" binding:"required"`
	SlotID         string  `json:"slot_id,omitempty"`
	Date           string  `json:"date" binding:"required"`       // "2025-12-15"
	StartTime      string  `json:"start_time" binding:"required"` // "09:00"
	Pax            int     `json:"pax" binding:"required"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

// Validate validates the request and returns the parsed travel date
func (r *CreateBookingRequest) Validate() (time.Time, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return time.Time{}, ValidationError("user_id is required")
	}
	if strings.TrimSpace(r.DestinationID) == "" {
		return time.Time{}, ValidationError("destination_id is required")
	}
	if r.Pax < 1 {
		return time.Time{}, ValidationError("pax must be at least 1")
	}
	if !startTimePattern.MatchString(r.StartTime) {
		return time.Time{}, ValidationError("invalid start_time %q, expected HH:MM", r.StartTime)
	}
	return ParseTravelDate(r.Date)
}

// PayBookingRequest is the request to pay for a booking
type PayBookingRequest struct {
	Method PaymentMethod `json:"method" binding:"required"`
}
