package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/reservation-engine/internal/models"
	"github.com/tourbooking/reservation-engine/internal/services"
)

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	receiptService *services.ReceiptService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(
	bookingService *services.BookingService,
	receiptService *services.ReceiptService,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		receiptService: receiptService,
		logger:         logger,
	}
}

// ============================================================================
// CREATE - POST /api/v1/bookings
// ============================================================================

// CreateBooking reserves seats and creates a booking awaiting payment
// @Summary Create booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Repeat-safe key, scoped to the user"
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.Booking
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "Destination not found"
// @Failure 409 {object} map[string]interface{} "Not enough seats"
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid request: " + err.Error()})
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" && req.IdempotencyKey == nil {
		req.IdempotencyKey = &key
	}

	booking, err := h.bookingService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ============================================================================
// READ - GET /api/v1/bookings/:booking_id, GET /api/v1/users/:user_id/bookings
// ============================================================================

// GetBooking returns a booking
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /bookings/{booking_id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.Get(c.Request.Context(), c.Param("booking_id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListUserBookings returns a user's bookings, newest first
// @Summary List user bookings
// @Tags Bookings
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /users/{user_id}/bookings [get]
func (h *BookingHandler) ListUserBookings(c *gin.Context) {
	bookings, err := h.bookingService.ListForUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to list bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// ============================================================================
// PAY / CANCEL - POST /api/v1/bookings/:booking_id/{pay,cancel}
// ============================================================================

// PayBooking charges the booking through the chosen method
// @Summary Pay booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param booking_id path string true "Booking ID"
// @Param request body models.PayBookingRequest true "Payment method"
// @Success 200 {object} models.Booking
// @Failure 402 {object} map[string]interface{} "Payment rejected, seats stay held"
// @Failure 409 {object} map[string]interface{} "Booking not awaiting payment"
// @Router /bookings/{booking_id}/pay [post]
func (h *BookingHandler) PayBooking(c *gin.Context) {
	var req models.PayBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid request: " + err.Error()})
		return
	}

	booking, err := h.bookingService.Pay(c.Request.Context(), c.Param("booking_id"), req.Method)
	if errors.Is(err, models.ErrPaymentRejected) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":   errorCode(err),
			"message": err.Error(),
			"booking": booking,
		})
		return
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to pay booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels a booking awaiting payment and frees its seats
// @Summary Cancel booking
// @Tags Bookings
// @Produce json
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 409 {object} map[string]interface{} "Booking already paid or cancelled"
// @Router /bookings/{booking_id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	booking, err := h.bookingService.Cancel(c.Request.Context(), c.Param("booking_id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ============================================================================
// PAYMENTS & RECEIPT
// ============================================================================

// ListPayments returns every payment attempt on the booking
// @Summary List payment attempts
// @Tags Bookings
// @Produce json
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Router /bookings/{booking_id}/payments [get]
func (h *BookingHandler) ListPayments(c *gin.Context) {
	payments, err := h.bookingService.Payments(c.Request.Context(), c.Param("booking_id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to list payments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"count":    len(payments),
	})
}

// GetReceipt returns the receipt of a paid booking
// @Summary Get receipt
// @Tags Bookings
// @Produce json
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} models.Receipt
// @Failure 404 {object} map[string]interface{} "No receipt for this booking"
// @Router /bookings/{booking_id}/receipt [get]
func (h *BookingHandler) GetReceipt(c *gin.Context) {
	receipt := h.receiptService.Emit(c.Request.Context(), c.Param("booking_id"))
	if receipt == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no receipt available for this booking"})
		return
	}

	c.JSON(http.StatusOK, receipt)
}
