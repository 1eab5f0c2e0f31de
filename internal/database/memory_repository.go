package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tourbooking/reservation-engine/internal/models"
)

// MemoryStore keeps destinations, slots, bookings and payments in process
// memory. It is used when DATABASE_URL is empty and by the service tests.
// Values are copied in and out so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	destinations map[string]models.Destination
	slots        map[string]models.TourSlot
	bookings     map[string]models.Booking
	payments     map[string]models.Payment
	paymentOrder []string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		destinations: make(map[string]models.Destination),
		slots:        make(map[string]models.TourSlot),
		bookings:     make(map[string]models.Booking),
		payments:     make(map[string]models.Payment),
	}
}

// ============================================================================
// DESTINATIONS
// ============================================================================

// PutDestination adds or replaces a catalog entry
func (s *MemoryStore) PutDestination(d models.Destination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destinations[d.ID] = d
}

// DeleteDestination removes a catalog entry
func (s *MemoryStore) DeleteDestination(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.destinations, id)
}

func (s *MemoryStore) Resolve(_ context.Context, destinationID string) (*models.Destination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.destinations[destinationID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// ============================================================================
// SLOTS
// ============================================================================

func (s *MemoryStore) FindSlot(_ context.Context, slotID string) (*models.TourSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return nil, nil
	}
	return &slot, nil
}

func (s *MemoryStore) CreateSlot(_ context.Context, slot *models.TourSlot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.slots[slot.ID]; exists {
		return false, nil
	}
	now := time.Now()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	s.slots[slot.ID] = *slot
	return true, nil
}

func (s *MemoryStore) SaveSlot(_ context.Context, slot *models.TourSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.slots[slot.ID]
	if !ok || stored.Version != slot.Version {
		return models.ErrStaleSlot
	}
	slot.Version++
	slot.UpdatedAt = time.Now()
	stored.Occupied = slot.Occupied
	stored.Version = slot.Version
	stored.UpdatedAt = slot.UpdatedAt
	s.slots[slot.ID] = stored
	return nil
}

func (s *MemoryStore) ListSlots(_ context.Context) ([]models.TourSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots := make([]models.TourSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })
	return slots, nil
}

// ============================================================================
// BOOKINGS
// ============================================================================

func (s *MemoryStore) CreateBooking(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[b.ID]; exists {
		return fmt.Errorf("%w: bookings_pkey", models.ErrConflict)
	}
	if err := s.checkBookingUnique(b); err != nil {
		return err
	}
	s.bookings[b.ID] = copyBooking(*b)
	return nil
}

// TransitionBooking mirrors the conditional UPDATE of the Postgres store.
func (s *MemoryStore) TransitionBooking(_ context.Context, b *models.Booking, from models.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bookings[b.ID]
	if !ok || stored.Status != from {
		return fmt.Errorf("booking %s is no longer %s: %w", b.ID, from, models.ErrInvalidTransition)
	}
	if err := s.checkBookingUnique(b); err != nil {
		return err
	}

	updated := copyBooking(*b)
	stored.Status = updated.Status
	stored.ConfirmationCode = updated.ConfirmationCode
	stored.PaymentMethod = updated.PaymentMethod
	stored.UpdatedAt = updated.UpdatedAt
	stored.PaidAt = updated.PaidAt
	stored.CancelledAt = updated.CancelledAt
	s.bookings[b.ID] = stored
	return nil
}

// checkBookingUnique enforces the unique indexes; callers hold s.mu.
func (s *MemoryStore) checkBookingUnique(b *models.Booking) error {
	for id, other := range s.bookings {
		if id == b.ID {
			continue
		}
		if b.ConfirmationCode != "" && other.ConfirmationCode == b.ConfirmationCode {
			return fmt.Errorf("%w: bookings_confirmation_code_key", models.ErrConflict)
		}
		if b.IdempotencyKey != nil && other.IdempotencyKey != nil &&
			other.UserID == b.UserID && *other.IdempotencyKey == *b.IdempotencyKey {
			return fmt.Errorf("%w: bookings_user_id_idempotency_key_key", models.ErrConflict)
		}
	}
	return nil
}

func (s *MemoryStore) FindBooking(_ context.Context, bookingID string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	found := copyBooking(b)
	return &found, nil
}

func (s *MemoryStore) FindByConfirmationCode(_ context.Context, code string) (*models.Booking, error) {
	return s.findBooking(func(b models.Booking) bool {
		return code != "" && b.ConfirmationCode == code
	}), nil
}

func (s *MemoryStore) FindByIdempotencyKey(_ context.Context, userID, key string) (*models.Booking, error) {
	return s.findBooking(func(b models.Booking) bool {
		return b.UserID == userID && b.IdempotencyKey != nil && *b.IdempotencyKey == key
	}), nil
}

func (s *MemoryStore) findBooking(match func(models.Booking) bool) *models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if match(b) {
			found := copyBooking(b)
			return &found
		}
	}
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bookings := []models.Booking{}
	for _, b := range s.bookings {
		if b.UserID == userID {
			bookings = append(bookings, copyBooking(b))
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (s *MemoryStore) SumHeldPaxBySlot(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	held := make(map[string]int)
	for _, b := range s.bookings {
		if b.Status.HoldsSeats() {
			held[b.SlotID] += b.Pax
		}
	}
	return held, nil
}

// copyBooking detaches the pointer fields from the stored value
func copyBooking(b models.Booking) models.Booking {
	if b.IdempotencyKey != nil {
		key := *b.IdempotencyKey
		b.IdempotencyKey = &key
	}
	if b.PaidAt != nil {
		paidAt := *b.PaidAt
		b.PaidAt = &paidAt
	}
	if b.CancelledAt != nil {
		cancelledAt := *b.CancelledAt
		b.CancelledAt = &cancelledAt
	}
	return b
}

// ============================================================================
// PAYMENTS
// ============================================================================

func (s *MemoryStore) SavePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[p.ID]; exists {
		return fmt.Errorf("%w: payments_pkey", models.ErrConflict)
	}
	for _, other := range s.payments {
		if other.TransactionID == p.TransactionID {
			return fmt.Errorf("%w: payments_transaction_id_key", models.ErrConflict)
		}
	}
	stored := *p
	if p.FailureReason != nil {
		reason := *p.FailureReason
		stored.FailureReason = &reason
	}
	s.payments[p.ID] = stored
	s.paymentOrder = append(s.paymentOrder, p.ID)
	return nil
}

func (s *MemoryStore) FindPayment(_ context.Context, paymentID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) ListPaymentsByBooking(_ context.Context, bookingID string) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payments := []models.Payment{}
	for _, id := range s.paymentOrder {
		if p := s.payments[id]; p.BookingID == bookingID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}
