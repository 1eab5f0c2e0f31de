package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/reservation-engine/internal/models"
)

// GatewayDecision is a gateway's answer to an authorization request
type GatewayDecision struct {
	Approved bool
	Reason   string // Set when declined
}

// PaymentGateway authorizes a charge on one payment channel
type PaymentGateway interface {
	Authorize(ctx context.Context, bookingID string, amount float64) (GatewayDecision, error)
}

// SimulatedGateway stands in for a real wallet or card acquirer. It waits
// Latency, then approves unless Decline returns a reason.
type SimulatedGateway struct {
	Latency time.Duration
	Decline func(bookingID string, amount float64) string
}

// Authorize implements PaymentGateway
func (g *SimulatedGateway) Authorize(ctx context.Context, bookingID string, amount float64) (GatewayDecision, error) {
	if g.Latency > 0 {
		timer := time.NewTimer(g.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return GatewayDecision{}, ctx.Err()
		case <-timer.C:
		}
	}

	if g.Decline != nil {
		if reason := g.Decline(bookingID, amount); reason != "" {
			return GatewayDecision{Approved: false, Reason: reason}, nil
		}
	}
	return GatewayDecision{Approved: true}, nil
}

// NewSimulatedGateways returns one simulated gateway per supported method
func NewSimulatedGateways(latency time.Duration) map[models.PaymentMethod]PaymentGateway {
	return map[models.PaymentMethod]PaymentGateway{
		models.PaymentMethodYape: &SimulatedGateway{Latency: latency},
		models.PaymentMethodPlin: &SimulatedGateway{Latency: latency},
		models.PaymentMethodCard: &SimulatedGateway{Latency: latency},
	}
}

// PaymentProcessor runs a payment attempt through the method's gateway and
// records every attempt, whatever its outcome.
type PaymentProcessor struct {
	store    PaymentStore
	gateways map[models.PaymentMethod]PaymentGateway
	currency string
	logger   *logrus.Logger
}

// NewPaymentProcessor creates a new PaymentProcessor
func NewPaymentProcessor(
	store PaymentStore,
	gateways map[models.PaymentMethod]PaymentGateway,
	currency string,
	logger *logrus.Logger,
) *PaymentProcessor {
	return &PaymentProcessor{
		store:    store,
		gateways: gateways,
		currency: currency,
		logger:   logger,
	}
}

// Process charges amount for the booking. A declined charge is not an error:
// the returned Payment carries the rejected outcome. If ctx ends while the
// gateway is working, a cancelled attempt is recorded and ctx's error returned.
func (p *PaymentProcessor) Process(ctx context.Context, bookingID string, amount float64, method models.PaymentMethod) (*models.Payment, error) {
	gateway, ok := p.gateways[method]
	if !ok {
		return nil, models.ValidationError("unsupported payment method %q", method)
	}

	payment := &models.Payment{
		ID:            uuid.New().String(),
		BookingID:     bookingID,
		Amount:        amount,
		Currency:      p.currency,
		Method:        method,
		TransactionID: fmt.Sprintf("%s-%s", strings.ToUpper(string(method)), uuid.New().String()),
	}

	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		p.reject(payment, "invalid amount")
	} else {
		decision, err := gateway.Authorize(ctx, bookingID, amount)
		switch {
		case err != nil && ctx.Err() != nil:
			payment.Outcome = models.PaymentCancelled
			reason := "cancelled before the gateway answered"
			payment.FailureReason = &reason
		case err != nil:
			p.logger.WithError(err).WithField("booking_id", bookingID).Error("Payment gateway failed")
			p.reject(payment, err.Error())
		case !decision.Approved:
			p.reject(payment, decision.Reason)
		default:
			payment.Outcome = models.PaymentApproved
		}
	}

	payment.CreatedAt = time.Now()
	if err := p.store.SavePayment(context.WithoutCancel(ctx), payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"booking_id":     bookingID,
		"payment_id":     payment.ID,
		"transaction_id": payment.TransactionID,
		"method":         method,
		"amount":         amount,
		"outcome":        payment.Outcome,
	}).Info("Payment attempt recorded")

	if payment.Outcome == models.PaymentCancelled {
		return nil, fmt.Errorf("payment for booking %s interrupted: %w", bookingID, ctx.Err())
	}
	return payment, nil
}

func (p *PaymentProcessor) reject(payment *models.Payment, reason string) {
	if reason == "" {
		reason = "declined"
	}
	payment.Outcome = models.PaymentRejected
	payment.FailureReason = &reason
}
