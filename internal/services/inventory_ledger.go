package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourbooking/reservation-engine/internal/models"
)

// InventoryLedger owns the occupancy counters of tour slots. Reservations on
// one slot are serialized in-process by a per-slot lock and across instances
// by the store's version compare-and-set.
type InventoryLedger struct {
	catalog    DestinationCatalog
	slots      SlotStore
	locks      *keyedMutex
	maxRetries int
	logger     *logrus.Logger
}

// NewInventoryLedger creates a new InventoryLedger
func NewInventoryLedger(catalog DestinationCatalog, slots SlotStore, maxRetries int, logger *logrus.Logger) *InventoryLedger {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &InventoryLedger{
		catalog:    catalog,
		slots:      slots,
		locks:      newKeyedMutex(),
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// ============================================================================
// SLOTS & AVAILABILITY
// ============================================================================

// GetOrCreateSlot returns the destination's slot on date, creating it empty
// with the destination's per-slot capacity when it does not exist yet.
func (l *InventoryLedger) GetOrCreateSlot(ctx context.Context, destinationID string, date time.Time) (*models.TourSlot, error) {
	date = date.UTC()

	destination, err := l.catalog.Resolve(ctx, destinationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	if destination == nil {
		return nil, fmt.Errorf("destination %s: %w", destinationID, models.ErrNotFound)
	}

	slotID := models.SlotID(destinationID, date)
	slot, err := l.loadSlot(ctx, slotID)
	if err != nil || slot != nil {
		return slot, err
	}

	slot = &models.TourSlot{
		ID:            slotID,
		DestinationID: destinationID,
		Date:          date.Truncate(24 * time.Hour),
		Capacity:      destination.CapacityPerSlot,
	}
	created, err := l.slots.CreateSlot(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}
	if created {
		l.logger.WithFields(logrus.Fields{
			"slot_id":  slotID,
			"capacity": slot.Capacity,
		}).Info("Tour slot created")
		return slot, nil
	}

	// Lost the insert race; the winner's row is authoritative.
	slot, err = l.loadSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("slot %s vanished after concurrent create", slotID)
	}
	return slot, nil
}

// QueryAvailability reports the slot's counters. An unknown slot is simply
// unavailable.
func (l *InventoryLedger) QueryAvailability(ctx context.Context, slotID string) (*models.Availability, error) {
	slot, err := l.loadSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	return models.NewAvailability(slotID, slot), nil
}

// CheckAvailability resolves the slot for a destination and date, creating it
// on first sight, and reports its availability.
func (l *InventoryLedger) CheckAvailability(ctx context.Context, destinationID string, date time.Time) (*models.Availability, error) {
	slot, err := l.GetOrCreateSlot(ctx, destinationID, date)
	if errors.Is(err, models.ErrNotFound) {
		return models.NewAvailability(models.SlotID(destinationID, date), nil), nil
	}
	if err != nil {
		return nil, err
	}
	return models.NewAvailability(slot.ID, slot), nil
}

// ============================================================================
// RESERVE / RELEASE
// ============================================================================

// ReserveSeats adds pax to the slot's occupancy if it fits. It returns false,
// leaving the slot untouched, when there is not enough room.
func (l *InventoryLedger) ReserveSeats(ctx context.Context, slotID string, pax int) (bool, error) {
	if pax < 1 {
		return false, models.ValidationError("pax must be at least 1")
	}

	unlock := l.locks.Lock(slotID)
	defer unlock()

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		slot, err := l.loadSlot(ctx, slotID)
		if err != nil {
			return false, err
		}
		if slot == nil {
			return false, fmt.Errorf("slot %s: %w", slotID, models.ErrNotFound)
		}

		if slot.Occupied+pax > slot.Capacity {
			l.logger.WithFields(logrus.Fields{
				"slot_id":   slotID,
				"pax":       pax,
				"available": slot.Available(),
			}).Info("Reservation refused, not enough seats")
			return false, nil
		}

		slot.Occupied += pax
		err = l.slots.SaveSlot(ctx, slot)
		if errors.Is(err, models.ErrStaleSlot) {
			l.logger.WithFields(logrus.Fields{
				"slot_id": slotID,
				"attempt": attempt,
			}).Debug("Slot changed underneath reservation, retrying")
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to reserve seats: %w", err)
		}

		l.logger.WithFields(logrus.Fields{
			"slot_id":  slotID,
			"pax":      pax,
			"occupied": slot.Occupied,
			"capacity": slot.Capacity,
		}).Info("Seats reserved")
		return true, nil
	}

	return false, fmt.Errorf("reserve on slot %s gave up after %d attempts: %w", slotID, l.maxRetries, models.ErrStaleSlot)
}

// ReleaseSeats gives pax seats back to the slot. Occupancy never goes below
// zero; releasing more than is held is logged and clamped.
func (l *InventoryLedger) ReleaseSeats(ctx context.Context, slotID string, pax int) error {
	if pax < 1 {
		return models.ValidationError("pax must be at least 1")
	}

	unlock := l.locks.Lock(slotID)
	defer unlock()

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		slot, err := l.loadSlot(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return fmt.Errorf("slot %s: %w", slotID, models.ErrNotFound)
		}

		occupied := slot.Occupied - pax
		if occupied < 0 {
			l.logger.WithFields(logrus.Fields{
				"slot_id":  slotID,
				"pax":      pax,
				"occupied": slot.Occupied,
			}).Warn("Release exceeds occupancy, clamping to zero")
			occupied = 0
		}
		slot.Occupied = occupied

		err = l.slots.SaveSlot(ctx, slot)
		if errors.Is(err, models.ErrStaleSlot) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to release seats: %w", err)
		}

		l.logger.WithFields(logrus.Fields{
			"slot_id":  slotID,
			"pax":      pax,
			"occupied": slot.Occupied,
		}).Info("Seats released")
		return nil
	}

	return fmt.Errorf("release on slot %s gave up after %d attempts: %w", slotID, l.maxRetries, models.ErrStaleSlot)
}

// loadSlot fetches a slot and refuses to hand out one whose counters are
// already out of range.
func (l *InventoryLedger) loadSlot(ctx context.Context, slotID string) (*models.TourSlot, error) {
	slot, err := l.slots.FindSlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot: %w", err)
	}
	if slot == nil {
		return nil, nil
	}
	if err := slot.CheckInvariant(); err != nil {
		l.logger.WithError(err).WithField("slot_id", slotID).Error("Ledger invariant violated")
		return nil, err
	}
	return slot, nil
}
