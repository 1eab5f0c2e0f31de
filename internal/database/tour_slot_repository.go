package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tourbooking/reservation-engine/internal/models"
)

// TourSlotRepository persists slot capacity and occupancy counters
type TourSlotRepository struct {
	db *sqlx.DB
}

// NewTourSlotRepository creates a new TourSlotRepository
func NewTourSlotRepository(db *sqlx.DB) *TourSlotRepository {
	return &TourSlotRepository{db: db}
}

const slotColumns = `id, destination_id, slot_date, capacity, occupied, version, created_at, updated_at`

// FindSlot returns the slot, or nil when it does not exist
func (r *TourSlotRepository) FindSlot(ctx context.Context, slotID string) (*models.TourSlot, error) {
	var slot models.TourSlot
	err := r.db.GetContext(ctx, &slot, `SELECT `+slotColumns+` FROM tour_slots WHERE id = $1`, slotID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch slot: %w", err)
	}
	return &slot, nil
}

// CreateSlot inserts the slot unless one with the same id exists.
// Returns false when another writer created it first.
func (r *TourSlotRepository) CreateSlot(ctx context.Context, slot *models.TourSlot) (bool, error) {
	now := time.Now()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	query := `
		INSERT INTO tour_slots (id, destination_id, slot_date, capacity, occupied, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		slot.ID, slot.DestinationID, slot.Date, slot.Capacity, slot.Occupied, slot.Version,
		slot.CreatedAt, slot.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create slot: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// SaveSlot writes the occupancy if the stored version still equals slot.Version.
// On success slot.Version is advanced; otherwise models.ErrStaleSlot is returned.
func (r *TourSlotRepository) SaveSlot(ctx context.Context, slot *models.TourSlot) error {
	query := `
		UPDATE tour_slots
		SET occupied = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2`

	result, err := r.db.ExecContext(ctx, query, slot.ID, slot.Version, slot.Occupied)
	if err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.ErrStaleSlot
	}
	slot.Version++
	slot.UpdatedAt = time.Now()
	return nil
}

// ListSlots returns every slot, used by the ledger audit
func (r *TourSlotRepository) ListSlots(ctx context.Context) ([]models.TourSlot, error) {
	var slots []models.TourSlot
	if err := r.db.SelectContext(ctx, &slots, `SELECT `+slotColumns+` FROM tour_slots ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}
