package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/tourbooking/reservation-engine/internal/models"
)

// PaymentRepository appends and reads payment attempts. Rows are never updated.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, amount, currency, method, outcome, transaction_id, failure_reason, created_at`

// SavePayment appends a payment attempt
func (r *PaymentRepository) SavePayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.BookingID, p.Amount, p.Currency, p.Method, p.Outcome,
		p.TransactionID, p.FailureReason, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", mapWriteError(err))
	}
	return nil
}

// FindPayment returns the payment attempt, or nil when it does not exist
func (r *PaymentRepository) FindPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return &payment, nil
}

// ListPaymentsByBooking returns the booking's attempts in the order they were made
func (r *PaymentRepository) ListPaymentsByBooking(ctx context.Context, bookingID string) ([]models.Payment, error) {
	payments := []models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &payments, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
