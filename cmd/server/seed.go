package main

import (
	"github.com/lib/pq"
	"github.com/tourbooking/reservation-engine/internal/database"
	"github.com/tourbooking/reservation-engine/internal/models"
)

// seedDestinations loads the demo catalog into the in-memory store. Postgres
// deployments get the same rows from migrations/002_seed_destinations.sql.
func seedDestinations(store *database.MemoryStore) {
	for _, d := range demoCatalog {
		store.PutDestination(d)
	}
}

var demoCatalog = []models.Destination{
	{
		ID:              "machu-picchu",
		Name:            "Machu Picchu",
		BasePrice:       450,
		CapacityPerSlot: 20,
		Location:        "Cusco",
		DurationMinutes: 600,
		Categories:      pq.StringArray{"history", "adventure"},
	},
	{
		ID:              "sacred-valley",
		Name:            "Valle Sagrado",
		BasePrice:       180,
		CapacityPerSlot: 25,
		Location:        "Cusco",
		DurationMinutes: 480,
		Categories:      pq.StringArray{"history", "culture"},
	},
	{
		ID:              "rainbow-mountain",
		Name:            "Montaña de Siete Colores",
		BasePrice:       120,
		CapacityPerSlot: 15,
		Location:        "Cusco",
		DurationMinutes: 720,
		Categories:      pq.StringArray{"adventure", "trekking"},
	},
	{
		ID:              "lake-titicaca",
		Name:            "Lago Titicaca",
		BasePrice:       210,
		CapacityPerSlot: 30,
		Location:        "Puno",
		DurationMinutes: 540,
		Categories:      pq.StringArray{"culture", "nature"},
	},
	{
		ID:              "ballestas-islands",
		Name:            "Islas Ballestas",
		BasePrice:       95,
		CapacityPerSlot: 40,
		Location:        "Paracas",
		DurationMinutes: 120,
		Categories:      pq.StringArray{"nature", "wildlife"},
	},
}
