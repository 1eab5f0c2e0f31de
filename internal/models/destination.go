package models

import "github.com/lib/pq"

// Destination is a catalog entry. The reservation engine reads it, never writes it.
type Destination struct {
	ID              string         `json:"id" db:"id"`
	Name            string         `json:"name" db:"name"`
	BasePrice       float64        `json:"base_price" db:"base_price"`
	CapacityPerSlot int            `json:"capacity_per_slot" db:"capacity_per_slot"`
	Location        string         `json:"location" db:"location"`
	DurationMinutes int            `json:"duration_minutes" db:"duration_minutes"`
	Categories      pq.StringArray `json:"categories" db:"categories"`
}
