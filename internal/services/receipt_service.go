package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/tourbooking/reservation-engine/internal/models"
	"github.com/tourbooking/reservation-engine/pkg/token"
)

// ReceiptService builds receipts for paid bookings
type ReceiptService struct {
	bookings BookingStore
	catalog  DestinationCatalog
	logger   *logrus.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(bookings BookingStore, catalog DestinationCatalog, logger *logrus.Logger) *ReceiptService {
	return &ReceiptService{
		bookings: bookings,
		catalog:  catalog,
		logger:   logger,
	}
}

// Emit returns the receipt for a paid booking, or nil when none can be issued.
// The receipt depends only on the booking and its destination, so repeated
// calls return identical values.
func (s *ReceiptService) Emit(ctx context.Context, bookingID string) *models.Receipt {
	log := s.logger.WithField("booking_id", bookingID)

	booking, err := s.bookings.FindBooking(ctx, bookingID)
	if err != nil {
		log.WithError(err).Error("Failed to load booking for receipt")
		return nil
	}
	if booking == nil {
		log.Debug("Receipt requested for unknown booking")
		return nil
	}
	if booking.Status != models.BookingStatusPaid || booking.ConfirmationCode == "" {
		log.WithField("status", booking.Status).Debug("Receipt requested for unpaid booking")
		return nil
	}

	destination, err := s.catalog.Resolve(ctx, booking.DestinationID)
	if err != nil {
		log.WithError(err).Error("Failed to resolve destination for receipt")
		return nil
	}
	if destination == nil {
		log.WithField("destination_id", booking.DestinationID).Warn("Receipt destination no longer in catalog")
		return nil
	}

	return &models.Receipt{
		BookingID:        booking.ID,
		ConfirmationCode: booking.ConfirmationCode,
		QRPayload:        token.QRPayload(booking.ConfirmationCode),
		DestinationName:  destination.Name,
		TravelDate:       booking.TravelDate.Format(models.DateLayout),
		StartTime:        booking.StartTime,
		Pax:              booking.Pax,
		TotalAmount:      booking.TotalPrice,
		Currency:         booking.Currency,
		PaymentMethod:    booking.PaymentMethod,
		PaidAt:           booking.PaidAt,
	}
}
