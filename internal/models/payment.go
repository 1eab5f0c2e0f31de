package models

import "time"

// PaymentMethod identifies the channel a customer pays through
type PaymentMethod string

const (
	PaymentMethodYape PaymentMethod = "yape"
	PaymentMethodPlin PaymentMethod = "plin"
	PaymentMethodCard PaymentMethod = "card"
)

// IsValid reports whether the method is one the processor knows
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodYape, PaymentMethodPlin, PaymentMethodCard:
		return true
	}
	return false
}

// PaymentOutcome is the gateway's verdict on an attempt
type PaymentOutcome string

const (
	PaymentApproved  PaymentOutcome = "approved"
	PaymentRejected  PaymentOutcome = "rejected"
	PaymentCancelled PaymentOutcome = "cancelled" // Caller gave up before the gateway answered
)

// Payment is one payment attempt. Rows are append-only.
type Payment struct {
	ID            string         `json:"id" db:"id"`
	BookingID     string         `json:"booking_id" db:"booking_id"`
	Amount        float64        `json:"amount" db:"amount"`
	Currency      string         `json:"currency" db:"currency"`
	Method        PaymentMethod  `json:"method" db:"method"`
	Outcome       PaymentOutcome `json:"outcome" db:"outcome"`
	TransactionID string         `json:"transaction_id" db:"transaction_id"`
	FailureReason *string        `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// IsApproved reports whether this attempt may drive a booking to paid
func (p *Payment) IsApproved() bool {
	return p.Outcome == PaymentApproved
}

// AmountMatches compares against the expected amount with a cent of tolerance
func (p *Payment) AmountMatches(expected float64) bool {
	const tolerance = 0.01
	diff := p.Amount - expected
	if diff < 0 {
		diff = -diff
	}
	return diff < tolerance
}
