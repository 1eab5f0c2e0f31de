package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/tourbooking/reservation-engine/internal/database"
	"github.com/tourbooking/reservation-engine/internal/models"
)

var travelDate = time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func machuPicchu() models.Destination {
	return models.Destination{
		ID:              "machu-picchu",
		Name:            "Machu Picchu",
		BasePrice:       450,
		CapacityPerSlot: 20,
		Location:        "Cusco",
		DurationMinutes: 480,
	}
}

// seedSlot stores a slot with the given counters, bypassing the ledger.
func seedSlot(t *testing.T, store *database.MemoryStore, destinationID string, capacity, occupied int) *models.TourSlot {
	t.Helper()
	slot := &models.TourSlot{
		ID:            models.SlotID(destinationID, travelDate),
		DestinationID: destinationID,
		Date:          travelDate,
		Capacity:      capacity,
		Occupied:      occupied,
	}
	created, err := store.CreateSlot(context.Background(), slot)
	require.NoError(t, err)
	require.True(t, created)
	return slot
}

func occupancy(t *testing.T, store *database.MemoryStore, slotID string) int {
	t.Helper()
	slot, err := store.FindSlot(context.Background(), slotID)
	require.NoError(t, err)
	require.NotNil(t, slot)
	return slot.Occupied
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []models.BookingEvent
	err    error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	if event, ok := v.(models.BookingEvent); ok {
		p.events = append(p.events, event)
	}
	return p.err
}
