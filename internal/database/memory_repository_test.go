package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourbooking/reservation-engine/internal/models"
)

func TestMemoryStore_SlotVersioning(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	slot := &models.TourSlot{ID: "s1", DestinationID: "d1", Capacity: 10}
	created, err := store.CreateSlot(ctx, slot)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateSlot(ctx, &models.TourSlot{ID: "s1", Capacity: 99})
	require.NoError(t, err)
	assert.False(t, created)

	first, _ := store.FindSlot(ctx, "s1")
	second, _ := store.FindSlot(ctx, "s1")

	first.Occupied = 3
	require.NoError(t, store.SaveSlot(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Occupied = 4
	assert.ErrorIs(t, store.SaveSlot(ctx, second), models.ErrStaleSlot)

	stored, _ := store.FindSlot(ctx, "s1")
	assert.Equal(t, 3, stored.Occupied)
	assert.Equal(t, 10, stored.Capacity)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := "k1"

	require.NoError(t, store.CreateBooking(ctx, &models.Booking{ID: "b1", UserID: "u1", IdempotencyKey: &key}))

	found, err := store.FindBooking(ctx, "b1")
	require.NoError(t, err)
	found.Status = models.BookingStatusCancelled
	*found.IdempotencyKey = "changed"

	again, _ := store.FindBooking(ctx, "b1")
	assert.Equal(t, models.BookingStatus(""), again.Status)
	assert.Equal(t, "k1", *again.IdempotencyKey)
}

func TestMemoryStore_BookingUniqueness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := "k1"

	require.NoError(t, store.CreateBooking(ctx, &models.Booking{ID: "b1", UserID: "u1", ConfirmationCode: "PSAAAAAAAAAA", IdempotencyKey: &key}))

	err := store.CreateBooking(ctx, &models.Booking{ID: "b2", UserID: "u2", ConfirmationCode: "PSAAAAAAAAAA"})
	assert.ErrorIs(t, err, models.ErrConflict)

	err = store.CreateBooking(ctx, &models.Booking{ID: "b3", UserID: "u1", IdempotencyKey: &key})
	assert.ErrorIs(t, err, models.ErrConflict)

	// same key, different user
	require.NoError(t, store.CreateBooking(ctx, &models.Booking{ID: "b4", UserID: "u2", IdempotencyKey: &key}))

	found, err := store.FindByIdempotencyKey(ctx, "u2", "k1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "b4", found.ID)

	byCode, err := store.FindByConfirmationCode(ctx, "PSAAAAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "b1", byCode.ID)
}

func TestMemoryStore_TransitionBooking(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.CreateBooking(ctx, &models.Booking{ID: "b1", UserID: "u1", Pax: 2, Status: models.BookingStatusAwaitingPayment}))
	require.NoError(t, store.CreateBooking(ctx, &models.Booking{ID: "b2", UserID: "u2", Status: models.BookingStatusPaid, ConfirmationCode: "PSBBBBBBBBBB"}))

	err := store.CreateBooking(ctx, &models.Booking{ID: "b1", UserID: "u9"})
	assert.ErrorIs(t, err, models.ErrConflict)

	// Code already held elsewhere
	err = store.TransitionBooking(ctx, &models.Booking{ID: "b1", Status: models.BookingStatusPaid, ConfirmationCode: "PSBBBBBBBBBB"}, models.BookingStatusAwaitingPayment)
	assert.ErrorIs(t, err, models.ErrConflict)

	cancelled := &models.Booking{ID: "b1", UserID: "ignored", Pax: 99, Status: models.BookingStatusCancelled, UpdatedAt: now, CancelledAt: &now}
	require.NoError(t, store.TransitionBooking(ctx, cancelled, models.BookingStatusAwaitingPayment))

	// A second writer that read awaiting_payment loses
	paid := &models.Booking{ID: "b1", Status: models.BookingStatusPaid, ConfirmationCode: "PSAAAAAAAAAA", PaidAt: &now}
	err = store.TransitionBooking(ctx, paid, models.BookingStatusAwaitingPayment)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	err = store.TransitionBooking(ctx, &models.Booking{ID: "missing", Status: models.BookingStatusCancelled}, models.BookingStatusAwaitingPayment)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	stored, err := store.FindBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, stored.Status)
	assert.Empty(t, stored.ConfirmationCode)
	assert.Nil(t, stored.PaidAt)
	require.NotNil(t, stored.CancelledAt)
	// Only lifecycle fields are written
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, 2, stored.Pax)
}

func TestMemoryStore_ListByUserAndHeldPax(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateBooking(ctx, &models.Booking{ID: "old", UserID: "u1", SlotID: "s1", Pax: 2, Status: models.BookingStatusPaid, CreatedAt: base}))
	require.NoError(t, store.CreateBooking(ctx, &models.Booking{ID: "new", UserID: "u1", SlotID: "s1", Pax: 3, Status: models.BookingStatusAwaitingPayment, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.CreateBooking(ctx, &models.Booking{ID: "gone", UserID: "u2", SlotID: "s1", Pax: 5, Status: models.BookingStatusCancelled, CreatedAt: base}))

	bookings, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "new", bookings[0].ID)

	empty, err := store.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	held, err := store.SumHeldPaxBySlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"s1": 5}, held)
}

func TestMemoryStore_Payments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SavePayment(ctx, &models.Payment{ID: "p1", BookingID: "b1", TransactionID: "YAPE-1"}))
	require.NoError(t, store.SavePayment(ctx, &models.Payment{ID: "p2", BookingID: "b2", TransactionID: "YAPE-2"}))
	require.NoError(t, store.SavePayment(ctx, &models.Payment{ID: "p3", BookingID: "b1", TransactionID: "YAPE-3"}))

	assert.ErrorIs(t, store.SavePayment(ctx, &models.Payment{ID: "p4", BookingID: "b1", TransactionID: "YAPE-1"}), models.ErrConflict)

	payments, err := store.ListPaymentsByBooking(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "p1", payments[0].ID)
	assert.Equal(t, "p3", payments[1].ID)

	missing, err := store.FindPayment(ctx, "p9")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
