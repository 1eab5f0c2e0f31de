package services

import (
	"context"

	"github.com/tourbooking/reservation-engine/internal/models"
)

// Store lookups return (nil, nil) when the record does not exist. Services
// translate that into models.ErrNotFound where the caller needs an error.

// DestinationCatalog resolves destinations for pricing and capacity
type DestinationCatalog interface {
	Resolve(ctx context.Context, destinationID string) (*models.Destination, error)
}

// SlotStore persists slot counters
type SlotStore interface {
	FindSlot(ctx context.Context, slotID string) (*models.TourSlot, error)
	// CreateSlot inserts unless the id exists; false means another writer won.
	CreateSlot(ctx context.Context, slot *models.TourSlot) (bool, error)
	// SaveSlot is a compare-and-set on slot.Version and returns models.ErrStaleSlot on a miss.
	SaveSlot(ctx context.Context, slot *models.TourSlot) error
	ListSlots(ctx context.Context) ([]models.TourSlot, error)
}

// BookingStore persists bookings
type BookingStore interface {
	// CreateBooking inserts; duplicates come back as models.ErrConflict.
	CreateBooking(ctx context.Context, booking *models.Booking) error
	// TransitionBooking is a compare-and-set on the stored status and returns
	// models.ErrInvalidTransition when the booking is no longer in from.
	TransitionBooking(ctx context.Context, booking *models.Booking, from models.BookingStatus) error
	FindBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	FindByConfirmationCode(ctx context.Context, code string) (*models.Booking, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	SumHeldPaxBySlot(ctx context.Context) (map[string]int, error)
}

// PaymentStore appends payment attempts
type PaymentStore interface {
	SavePayment(ctx context.Context, payment *models.Payment) error
	FindPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	ListPaymentsByBooking(ctx context.Context, bookingID string) ([]models.Payment, error)
}

// EventPublisher emits domain events to whoever listens (notifications, analytics)
type EventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}
