package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/reservation-engine/internal/models"
	"github.com/tourbooking/reservation-engine/pkg/token"
)

// maxCodeAttempts bounds re-seeding when a confirmation code collides
const maxCodeAttempts = 5

// BookingServiceConfig holds configuration for the booking service
type BookingServiceConfig struct {
	Currency string // Currency bookings are priced in (default PEN)
}

// BookingService drives bookings through
// awaiting_payment → paid | cancelled, keeping the ledger in step.
type BookingService struct {
	ledger    *InventoryLedger
	catalog   DestinationCatalog
	bookings  BookingStore
	payments  PaymentStore
	processor *PaymentProcessor
	events    EventPublisher
	config    BookingServiceConfig
	logger    *logrus.Logger

	locks *keyedMutex

	inflightMu sync.Mutex
	inflight   map[string]struct{}

	now func() time.Time
}

// NewBookingService creates a new BookingService
func NewBookingService(
	ledger *InventoryLedger,
	catalog DestinationCatalog,
	bookings BookingStore,
	payments PaymentStore,
	processor *PaymentProcessor,
	events EventPublisher,
	config BookingServiceConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		ledger:    ledger,
		catalog:   catalog,
		bookings:  bookings,
		payments:  payments,
		processor: processor,
		events:    events,
		config:    config,
		logger:    logger,
		locks:     newKeyedMutex(),
		inflight:  make(map[string]struct{}),
		now:       time.Now,
	}
}

// ============================================================================
// CREATE
// ============================================================================

// Create reserves pax seats and records a booking awaiting payment. A request
// repeating a user's idempotency key returns the original booking untouched.
func (s *BookingService) Create(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error) {
	travelDate, err := req.Validate()
	if err != nil {
		return nil, err
	}

	var idempotencyKey *string
	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		key := *req.IdempotencyKey
		idempotencyKey = &key

		unlock := s.locks.Lock("idempotency:" + req.UserID + ":" + key)
		defer unlock()

		existing, err := s.bookings.FindByIdempotencyKey(ctx, req.UserID, key)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	destination, err := s.catalog.Resolve(ctx, req.DestinationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	if destination == nil {
		return nil, fmt.Errorf("destination %s: %w", req.DestinationID, models.ErrNotFound)
	}

	slotID := models.SlotID(destination.ID, travelDate)
	if req.SlotID != "" && req.SlotID != slotID {
		return nil, models.ValidationError("slot_id %s does not match destination and date (expected %s)", req.SlotID, slotID)
	}

	slot, err := s.ledger.GetOrCreateSlot(ctx, destination.ID, travelDate)
	if err != nil {
		return nil, err
	}

	reserved, err := s.ledger.ReserveSeats(ctx, slot.ID, req.Pax)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, fmt.Errorf("%d seats on %s: %w", req.Pax, slot.ID, models.ErrCapacityExceeded)
	}

	// From here on every failure must give the seats back.
	totalPrice := destination.BasePrice * float64(req.Pax)
	if math.IsNaN(totalPrice) || math.IsInf(totalPrice, 0) || totalPrice < 0 {
		s.releaseAfterFailure(ctx, slot.ID, req.Pax, "pricing")
		return nil, fmt.Errorf("invalid price %v for destination %s", destination.BasePrice, destination.ID)
	}

	now := s.now()
	booking := &models.Booking{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		DestinationID:  destination.ID,
		SlotID:         slot.ID,
		TravelDate:     travelDate,
		StartTime:      req.StartTime,
		Pax:            req.Pax,
		TotalPrice:     totalPrice,
		Currency:       s.config.Currency,
		Status:         models.BookingStatusAwaitingPayment,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		s.releaseAfterFailure(ctx, slot.ID, req.Pax, "persist")

		// Another instance stored the same idempotency key first.
		if idempotencyKey != nil && errors.Is(err, models.ErrConflict) {
			existing, findErr := s.bookings.FindByIdempotencyKey(ctx, req.UserID, *idempotencyKey)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"user_id":     booking.UserID,
		"slot_id":     booking.SlotID,
		"pax":         booking.Pax,
		"total_price": booking.TotalPrice,
	}).Info("Booking created")

	s.publish(ctx, models.EventBookingCreated, booking)
	return booking, nil
}

// ============================================================================
// PAYMENT
// ============================================================================

// Pay charges the booking's total through the processor and applies the
// outcome. Only one payment per booking may be in flight; the gateway call
// runs without holding any lock. An earlier approved charge that never reached
// the booking is applied instead of charging again.
func (s *BookingService) Pay(ctx context.Context, bookingID string, method models.PaymentMethod) (*models.Booking, error) {
	if !method.IsValid() {
		return nil, models.ValidationError("unsupported payment method %q", method)
	}

	booking, pending, err := s.startPayment(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer s.endPayment(bookingID)

	if pending != nil {
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"payment_id": pending.ID,
			"method":     pending.Method,
		}).Warn("Applying earlier approved payment instead of charging again")
		return s.ConfirmPayment(context.WithoutCancel(ctx), bookingID, pending.Method, pending)
	}

	payment, err := s.processor.Process(ctx, booking.ID, booking.TotalPrice, method)
	if err != nil {
		return nil, err
	}

	// The customer has been charged; a dropped caller must not strand the charge.
	return s.ConfirmPayment(context.WithoutCancel(ctx), bookingID, method, payment)
}

// ConfirmPayment applies a recorded payment attempt to the booking. An
// approved attempt for the right amount moves it to paid and issues the
// confirmation code; anything else leaves it awaiting payment with its seats
// still held.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID string, method models.PaymentMethod, payment *models.Payment) (*models.Booking, error) {
	if payment == nil {
		return nil, models.ValidationError("payment is required")
	}

	unlock := s.locks.Lock(bookingID)
	defer unlock()

	booking, err := s.bookings.FindBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, models.ErrNotFound)
	}

	// Trust the stored attempt, not the caller's copy.
	recorded, err := s.payments.FindPayment(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	if recorded == nil || recorded.BookingID != bookingID {
		return nil, models.ValidationError("payment %s is not recorded for booking %s", payment.ID, bookingID)
	}
	if method != "" && method != recorded.Method {
		return nil, models.ValidationError("payment %s was made with %s, not %s", recorded.ID, recorded.Method, method)
	}

	if !booking.CanConfirmPayment() {
		return nil, fmt.Errorf("cannot confirm payment for booking in status %s: %w", booking.Status, models.ErrInvalidTransition)
	}

	if !recorded.IsApproved() {
		reason := string(recorded.Outcome)
		if recorded.FailureReason != nil {
			reason = *recorded.FailureReason
		}
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"payment_id": recorded.ID,
			"reason":     reason,
		}).Warn("Payment not approved, booking stays awaiting payment")
		return booking, fmt.Errorf("%w: %s", models.ErrPaymentRejected, reason)
	}

	if !recorded.AmountMatches(booking.TotalPrice) {
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"payment_id": recorded.ID,
			"expected":   booking.TotalPrice,
			"paid":       recorded.Amount,
		}).Error("Payment amount mismatch")
		return booking, fmt.Errorf("%w: amount %.2f does not match total %.2f", models.ErrPaymentRejected, recorded.Amount, booking.TotalPrice)
	}

	if err := s.markPaid(ctx, booking, recorded.Method); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"booking_id": bookingID,
				"payment_id": recorded.ID,
				"amount":     recorded.Amount,
			}).Error("Approved payment could not be applied, booking changed concurrently")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"payment_id":        recorded.ID,
		"confirmation_code": booking.ConfirmationCode,
	}).Info("Booking paid")

	s.publish(ctx, models.EventBookingConfirmed, booking)
	return booking, nil
}

// markPaid issues a confirmation code and moves the booking from
// awaiting_payment to paid. The code is derived from the booking id; on
// collision the seed is extended and the write retried. A booking that left
// awaiting_payment in the meantime, e.g. cancelled by another instance, is not
// overwritten.
func (s *BookingService) markPaid(ctx context.Context, booking *models.Booking, method models.PaymentMethod) error {
	now := s.now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := token.ConfirmationCode(token.Reseed(booking.ID, attempt))

		holder, err := s.bookings.FindByConfirmationCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to check confirmation code: %w", err)
		}
		if holder != nil && holder.ID != booking.ID {
			continue
		}

		paid := *booking
		paid.Status = models.BookingStatusPaid
		paid.PaymentMethod = method
		paid.ConfirmationCode = code
		paid.PaidAt = &now
		paid.UpdatedAt = now

		err = s.bookings.TransitionBooking(ctx, &paid, models.BookingStatusAwaitingPayment)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if errors.Is(err, models.ErrInvalidTransition) {
			return fmt.Errorf("cannot mark booking %s paid: %w", booking.ID, err)
		}
		if err != nil {
			return fmt.Errorf("failed to save paid booking: %w", err)
		}

		*booking = paid
		return nil
	}
	return fmt.Errorf("no free confirmation code for booking %s after %d attempts", booking.ID, maxCodeAttempts)
}

// startPayment checks the booking under its lock and marks a payment in
// flight, so a concurrent Cancel cannot slip in before the gateway call. It
// also returns any approved attempt the booking has not absorbed yet.
func (s *BookingService) startPayment(ctx context.Context, bookingID string) (*models.Booking, *models.Payment, error) {
	unlock := s.locks.Lock(bookingID)
	defer unlock()

	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if !booking.CanConfirmPayment() {
		return nil, nil, fmt.Errorf("cannot pay booking in status %s: %w", booking.Status, models.ErrInvalidTransition)
	}
	if !s.beginPayment(bookingID) {
		return nil, nil, models.ErrPaymentInProgress
	}

	pending, err := s.unappliedPayment(ctx, booking)
	if err != nil {
		s.endPayment(bookingID)
		return nil, nil, err
	}
	return booking, pending, nil
}

// unappliedPayment returns an approved attempt for the full total on a booking
// still awaiting payment, left behind when the paid write failed after the
// charge went through.
func (s *BookingService) unappliedPayment(ctx context.Context, booking *models.Booking) (*models.Payment, error) {
	payments, err := s.payments.ListPaymentsByBooking(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	for i := range payments {
		if payments[i].IsApproved() && payments[i].AmountMatches(booking.TotalPrice) {
			return &payments[i], nil
		}
	}
	return nil, nil
}

func (s *BookingService) beginPayment(bookingID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[bookingID]; busy {
		return false
	}
	s.inflight[bookingID] = struct{}{}
	return true
}

func (s *BookingService) endPayment(bookingID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, bookingID)
}

func (s *BookingService) paymentInFlight(bookingID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	_, busy := s.inflight[bookingID]
	return busy
}

// ============================================================================
// CANCEL
// ============================================================================

// Cancel cancels a booking still awaiting payment and returns its seats.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) (*models.Booking, error) {
	unlock := s.locks.Lock(bookingID)
	defer unlock()

	booking, err := s.bookings.FindBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, models.ErrNotFound)
	}
	if s.paymentInFlight(bookingID) {
		return nil, models.ErrPaymentInProgress
	}
	if !booking.CanCancel() {
		return nil, fmt.Errorf("cannot cancel booking in status %s: %w", booking.Status, models.ErrInvalidTransition)
	}

	now := s.now()
	cancelled := *booking
	cancelled.Status = models.BookingStatusCancelled
	cancelled.CancelledAt = &now
	cancelled.UpdatedAt = now

	// Conditional on the status read above; a payment applied by another
	// instance since then wins and no seats are released.
	if err := s.bookings.TransitionBooking(ctx, &cancelled, models.BookingStatusAwaitingPayment); err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	// The booking is already cancelled; a failed release is left for the
	// ledger audit to surface rather than undone.
	if err := s.ledger.ReleaseSeats(ctx, cancelled.SlotID, cancelled.Pax); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": cancelled.ID,
			"slot_id":    cancelled.SlotID,
			"pax":        cancelled.Pax,
		}).Error("Failed to release seats for cancelled booking")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": cancelled.ID,
		"slot_id":    cancelled.SlotID,
	}).Info("Booking cancelled")

	s.publish(ctx, models.EventBookingCancelled, &cancelled)
	return &cancelled, nil
}

// ============================================================================
// QUERIES
// ============================================================================

// Get returns a booking by id
func (s *BookingService) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.bookings.FindBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, models.ErrNotFound)
	}
	return booking, nil
}

// ListForUser returns the user's bookings, newest first
func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	if userID == "" {
		return nil, models.ValidationError("user_id is required")
	}
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// Payments returns every payment attempt made for the booking
func (s *BookingService) Payments(ctx context.Context, bookingID string) ([]models.Payment, error) {
	if _, err := s.Get(ctx, bookingID); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListPaymentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *BookingService) releaseAfterFailure(ctx context.Context, slotID string, pax int, stage string) {
	if err := s.ledger.ReleaseSeats(context.WithoutCancel(ctx), slotID, pax); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"slot_id": slotID,
			"pax":     pax,
			"stage":   stage,
		}).Error("Failed to roll back seat reservation")
	}
}

// publish emits a booking event. Delivery failures are logged, never returned:
// the booking state is already committed.
func (s *BookingService) publish(ctx context.Context, routingKey string, booking *models.Booking) {
	if s.events == nil {
		return
	}
	event := models.NewBookingEvent(booking, s.now())
	if err := s.events.PublishJSON(ctx, routingKey, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id":  booking.ID,
			"routing_key": routingKey,
		}).Warn("Failed to publish booking event")
	}
}
