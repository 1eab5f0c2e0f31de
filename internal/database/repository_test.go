package database

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourbooking/reservation-engine/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var bookingRowColumns = []string{
	"id", "user_id", "destination_id", "slot_id", "travel_date", "start_time", "pax",
	"total_price", "currency", "status", "confirmation_code", "payment_method",
	"idempotency_key", "created_at", "updated_at", "paid_at", "cancelled_at",
}

func TestDestinationRepository_Resolve(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDestinationRepository(db)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM destinations WHERE id = \$1`).
			WithArgs("machu-picchu").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "name", "base_price", "capacity_per_slot", "location", "duration_minutes", "categories",
			}).AddRow("machu-picchu", "Machu Picchu", 450.0, 20, "Cusco", 480, []byte(`{adventure,history}`)))

		destination, err := repo.Resolve(ctx, "machu-picchu")
		require.NoError(t, err)
		require.NotNil(t, destination)
		assert.Equal(t, "Machu Picchu", destination.Name)
		assert.Equal(t, 450.0, destination.BasePrice)
		assert.Equal(t, 20, destination.CapacityPerSlot)
		assert.Equal(t, []string{"adventure", "history"}, []string(destination.Categories))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM destinations`).
			WithArgs("nowhere").
			WillReturnError(sql.ErrNoRows)

		destination, err := repo.Resolve(ctx, "nowhere")
		assert.NoError(t, err)
		assert.Nil(t, destination)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM destinations`).
			WithArgs("machu-picchu").
			WillReturnError(fmt.Errorf("connection reset"))

		destination, err := repo.Resolve(ctx, "machu-picchu")
		assert.Error(t, err)
		assert.Nil(t, destination)
		assert.Contains(t, err.Error(), "failed to fetch destination")
	})
}

func TestTourSlotRepository_CreateSlot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTourSlotRepository(db)
	ctx := context.Background()
	date := time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)

	t.Run("Inserted", func(t *testing.T) {
		slot := &models.TourSlot{ID: "machu-picchu_2025-12-15", DestinationID: "machu-picchu", Date: date, Capacity: 20}
		mock.ExpectExec(`INSERT INTO tour_slots`).
			WithArgs(slot.ID, "machu-picchu", date, 20, 0, int64(0), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		created, err := repo.CreateSlot(ctx, slot)
		require.NoError(t, err)
		assert.True(t, created)
		assert.False(t, slot.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Exists", func(t *testing.T) {
		slot := &models.TourSlot{ID: "machu-picchu_2025-12-15", DestinationID: "machu-picchu", Date: date, Capacity: 20}
		mock.ExpectExec(`INSERT INTO tour_slots (.+) ON CONFLICT \(id\) DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		created, err := repo.CreateSlot(ctx, slot)
		require.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTourSlotRepository_SaveSlot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTourSlotRepository(db)
	ctx := context.Background()

	t.Run("Version Matches", func(t *testing.T) {
		slot := &models.TourSlot{ID: "s1", Capacity: 20, Occupied: 5, Version: 3}
		mock.ExpectExec(`UPDATE tour_slots`).
			WithArgs("s1", int64(3), 5).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SaveSlot(ctx, slot))
		assert.Equal(t, int64(4), slot.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale Version", func(t *testing.T) {
		slot := &models.TourSlot{ID: "s1", Capacity: 20, Occupied: 6, Version: 3}
		mock.ExpectExec(`UPDATE tour_slots`).
			WithArgs("s1", int64(3), 6).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveSlot(ctx, slot)
		assert.ErrorIs(t, err, models.ErrStaleSlot)
		assert.Equal(t, int64(3), slot.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTourSlotRepository_FindSlot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTourSlotRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM tour_slots WHERE id = \$1`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "destination_id", "slot_date", "capacity", "occupied", "version", "created_at", "updated_at",
		}).AddRow("s1", "machu-picchu", now, 20, 7, int64(2), now, now))

	slot, err := repo.FindSlot(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, 13, slot.Available())
	assert.Equal(t, int64(2), slot.Version)

	mock.ExpectQuery(`SELECT (.+) FROM tour_slots`).WithArgs("s2").WillReturnError(sql.ErrNoRows)
	slot, err = repo.FindSlot(context.Background(), "s2")
	assert.NoError(t, err)
	assert.Nil(t, slot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_CreateBooking(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()
	now := time.Now()

	booking := &models.Booking{
		ID: "b1", UserID: "u1", DestinationID: "machu-picchu", SlotID: "machu-picchu_2025-12-15",
		TravelDate: now, StartTime: "09:00", Pax: 2, TotalPrice: 900, Currency: "PEN",
		Status: models.BookingStatusAwaitingPayment, CreatedAt: now, UpdatedAt: now,
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO bookings (.+) VALUES`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.CreateBooking(ctx, booking))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unique Violation Maps To Conflict", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_confirmation_code_key"})

		err := repo.CreateBooking(ctx, booking)
		assert.ErrorIs(t, err, models.ErrConflict)
		assert.Contains(t, err.Error(), "bookings_confirmation_code_key")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other Errors Pass Through", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO bookings`).WillReturnError(fmt.Errorf("disk full"))

		err := repo.CreateBooking(ctx, booking)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrConflict)
		assert.Contains(t, err.Error(), "failed to save booking")
	})
}

func TestBookingRepository_TransitionBooking(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()
	now := time.Now()

	paid := &models.Booking{
		ID: "b1", Status: models.BookingStatusPaid, ConfirmationCode: "PS0123456789",
		PaymentMethod: models.PaymentMethodYape, UpdatedAt: now, PaidAt: &now,
	}

	t.Run("Applies While Status Matches", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET (.+) WHERE id = \$1 AND status = \$2`).
			WithArgs("b1", models.BookingStatusAwaitingPayment, models.BookingStatusPaid, "PS0123456789", "yape",
				now, &now, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.TransitionBooking(ctx, paid, models.BookingStatusAwaitingPayment))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Moved On Is Invalid Transition", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.TransitionBooking(ctx, paid, models.BookingStatusAwaitingPayment)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		assert.Contains(t, err.Error(), "no longer awaiting_payment")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Code Collision Maps To Conflict", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings SET`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_confirmation_code_key"})

		err := repo.TransitionBooking(ctx, paid, models.BookingStatusAwaitingPayment)
		assert.ErrorIs(t, err, models.ErrConflict)
		assert.NotErrorIs(t, err, models.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_Find(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("By ID", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs("b1").
			WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
				"b1", "u1", "machu-picchu", "machu-picchu_2025-12-15", now, "09:00", 2,
				900.0, "PEN", "paid", "PS0123456789", "yape",
				nil, now, now, now, nil,
			))

		booking, err := repo.FindBooking(ctx, "b1")
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, models.BookingStatusPaid, booking.Status)
		assert.Equal(t, models.PaymentMethodYape, booking.PaymentMethod)
		assert.Equal(t, "PS0123456789", booking.ConfirmationCode)
		assert.Nil(t, booking.IdempotencyKey)
		assert.NotNil(t, booking.PaidAt)
		assert.Nil(t, booking.CancelledAt)
	})

	t.Run("By Idempotency Key Missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE user_id = \$1 AND idempotency_key = \$2`).
			WithArgs("u1", "key-1").
			WillReturnError(sql.ErrNoRows)

		booking, err := repo.FindByIdempotencyKey(ctx, "u1", "key-1")
		assert.NoError(t, err)
		assert.Nil(t, booking)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_SumHeldPaxBySlot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery(`SELECT slot_id, COALESCE\(SUM\(pax\), 0\) AS pax FROM bookings`).
		WithArgs(models.BookingStatusAwaitingPayment, models.BookingStatusPaid).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id", "pax"}).
			AddRow("s1", 7).
			AddRow("s2", 3))

	held, err := repo.SumHeldPaxBySlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"s1": 7, "s2": 3}, held)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()
	now := time.Now()
	columns := []string{"id", "booking_id", "amount", "currency", "method", "outcome", "transaction_id", "failure_reason", "created_at"}

	t.Run("Save", func(t *testing.T) {
		payment := &models.Payment{
			ID: "p1", BookingID: "b1", Amount: 900, Currency: "PEN",
			Method: models.PaymentMethodCard, Outcome: models.PaymentApproved,
			TransactionID: "CARD-1", CreatedAt: now,
		}
		mock.ExpectExec(`INSERT INTO payments`).
			WithArgs("p1", "b1", 900.0, "PEN", models.PaymentMethodCard, models.PaymentApproved, "CARD-1", nil, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SavePayment(ctx, payment))
	})

	t.Run("List By Booking", func(t *testing.T) {
		reason := "insufficient funds"
		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE booking_id = \$1 ORDER BY created_at`).
			WithArgs("b1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("p0", "b1", 900.0, "PEN", "card", "rejected", "CARD-0", reason, now.Add(-time.Minute)).
				AddRow("p1", "b1", 900.0, "PEN", "card", "approved", "CARD-1", nil, now))

		payments, err := repo.ListPaymentsByBooking(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, payments, 2)
		assert.False(t, payments[0].IsApproved())
		require.NotNil(t, payments[0].FailureReason)
		assert.Equal(t, reason, *payments[0].FailureReason)
		assert.True(t, payments[1].IsApproved())
	})

	t.Run("Find Missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE id = \$1`).
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		payment, err := repo.FindPayment(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, payment)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
