package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/tourbooking/reservation-engine/internal/models"
)

// BookingRepository handles booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, user_id, destination_id, slot_id, travel_date, start_time, pax,
	total_price, currency, status,
	COALESCE(confirmation_code, '') AS confirmation_code,
	COALESCE(payment_method, '') AS payment_method,
	idempotency_key, created_at, updated_at, paid_at, cancelled_at`

// CreateBooking inserts a new booking. Duplicate ids, confirmation codes and
// per-user idempotency keys come back as models.ErrConflict.
func (r *BookingRepository) CreateBooking(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, user_id, destination_id, slot_id, travel_date, start_time, pax,
			total_price, currency, status, confirmation_code, payment_method,
			idempotency_key, created_at, updated_at, paid_at, cancelled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''), $13, $14, $15, $16, $17
		)`

	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.UserID, b.DestinationID, b.SlotID, b.TravelDate, b.StartTime, b.Pax,
		b.TotalPrice, b.Currency, b.Status, b.ConfirmationCode, string(b.PaymentMethod),
		b.IdempotencyKey, b.CreatedAt, b.UpdatedAt, b.PaidAt, b.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save booking: %w", mapWriteError(err))
	}
	return nil
}

// TransitionBooking writes the booking's lifecycle fields only while the
// stored status is still from. A booking that moved on in the meantime
// yields models.ErrInvalidTransition and is left untouched.
func (r *BookingRepository) TransitionBooking(ctx context.Context, b *models.Booking, from models.BookingStatus) error {
	query := `
		UPDATE bookings SET
			status = $3,
			confirmation_code = NULLIF($4, ''),
			payment_method = NULLIF($5, ''),
			updated_at = $6,
			paid_at = $7,
			cancelled_at = $8
		WHERE id = $1 AND status = $2`

	result, err := r.db.ExecContext(ctx, query,
		b.ID, from, b.Status, b.ConfirmationCode, string(b.PaymentMethod),
		b.UpdatedAt, b.PaidAt, b.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", mapWriteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %s is no longer %s: %w", b.ID, from, models.ErrInvalidTransition)
	}
	return nil
}

// FindBooking returns the booking, or nil when it does not exist
func (r *BookingRepository) FindBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
}

// FindByConfirmationCode returns the booking holding the code, or nil
func (r *BookingRepository) FindByConfirmationCode(ctx context.Context, code string) (*models.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE confirmation_code = $1`, code)
}

// FindByIdempotencyKey returns the user's booking created with the key, or nil
func (r *BookingRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
}

func (r *BookingRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	return &booking, nil
}

// ListByUser returns the user's bookings, newest first
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// SumHeldPaxBySlot returns, per slot, the seats held by awaiting and paid bookings
func (r *BookingRepository) SumHeldPaxBySlot(ctx context.Context) (map[string]int, error) {
	type slotPax struct {
		SlotID string `db:"slot_id"`
		Pax    int    `db:"pax"`
	}

	query := `
		SELECT slot_id, COALESCE(SUM(pax), 0) AS pax
		FROM bookings
		WHERE status IN ($1, $2)
		GROUP BY slot_id`

	var rows []slotPax
	if err := r.db.SelectContext(ctx, &rows, query, models.BookingStatusAwaitingPayment, models.BookingStatusPaid); err != nil {
		return nil, fmt.Errorf("failed to sum held pax: %w", err)
	}

	held := make(map[string]int, len(rows))
	for _, row := range rows {
		held[row.SlotID] = row.Pax
	}
	return held, nil
}
