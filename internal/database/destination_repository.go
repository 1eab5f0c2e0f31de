package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/tourbooking/reservation-engine/internal/models"
)

// DestinationRepository reads the destination catalog
type DestinationRepository struct {
	db *sqlx.DB
}

// NewDestinationRepository creates a new DestinationRepository
func NewDestinationRepository(db *sqlx.DB) *DestinationRepository {
	return &DestinationRepository{db: db}
}

// Resolve returns the destination, or nil when it does not exist
func (r *DestinationRepository) Resolve(ctx context.Context, destinationID string) (*models.Destination, error) {
	var destination models.Destination
	query := `
		SELECT id, name, base_price, capacity_per_slot, location, duration_minutes, categories
		FROM destinations
		WHERE id = $1`

	err := r.db.GetContext(ctx, &destination, query, destinationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch destination: %w", err)
	}
	return &destination, nil
}
