package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/reservation-engine/internal/models"
)

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	var invariantErr *models.LedgerInvariantError
	switch {
	case errors.As(err, &invariantErr):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrPaymentRejected):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the stable, machine-readable name sent next to the message
func errorCode(err error) string {
	var invariantErr *models.LedgerInvariantError
	switch {
	case errors.As(err, &invariantErr):
		return "ledger_invariant"
	case errors.Is(err, models.ErrValidation):
		return "validation_error"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, models.ErrPaymentInProgress):
		return "payment_in_progress"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrPaymentRejected):
		return "payment_rejected"
	default:
		return "internal_error"
	}
}

// respondError writes the error response. Internal failures are logged and
// their details kept out of the body.
func respondError(c *gin.Context, logger *logrus.Logger, err error, action string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.FullPath()).Error(action)
		c.JSON(status, gin.H{"error": "internal_error", "message": action})
		return
	}
	c.JSON(status, gin.H{"error": errorCode(err), "message": err.Error()})
}
