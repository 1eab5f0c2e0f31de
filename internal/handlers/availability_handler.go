package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/reservation-engine/internal/models"
	"github.com/tourbooking/reservation-engine/internal/services"
)

// AvailabilityHandler exposes the inventory ledger
type AvailabilityHandler struct {
	ledger *services.InventoryLedger
	logger *logrus.Logger
}

// NewAvailabilityHandler creates a new AvailabilityHandler
func NewAvailabilityHandler(ledger *services.InventoryLedger, logger *logrus.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{ledger: ledger, logger: logger}
}

// CreateSlotRequest is the body of POST /api/v1/slots
type CreateSlotRequest struct {
	DestinationID string `json:"destination_id" binding:"required"`
	Date          string `json:"date" binding:"required"` // "2025-12-15"
}

// ============================================================================
// DESTINATION AVAILABILITY - GET /api/v1/destinations/:destination_id/availability
// ============================================================================

// CheckAvailability reports the seats left for a destination on a date
// @Summary Check availability
// @Tags Availability
// @Produce json
// @Param destination_id path string true "Destination ID"
// @Param date query string true "Travel date (YYYY-MM-DD)"
// @Success 200 {object} models.Availability
// @Failure 400 {object} map[string]interface{} "Invalid date"
// @Router /destinations/{destination_id}/availability [get]
func (h *AvailabilityHandler) CheckAvailability(c *gin.Context) {
	date, err := models.ParseTravelDate(c.Query("date"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to check availability")
		return
	}

	availability, err := h.ledger.CheckAvailability(c.Request.Context(), c.Param("destination_id"), date)
	if err != nil {
		respondError(c, h.logger, err, "Failed to check availability")
		return
	}

	c.JSON(http.StatusOK, availability)
}

// ============================================================================
// SLOTS - POST /api/v1/slots, GET /api/v1/slots/:slot_id/availability
// ============================================================================

// GetOrCreateSlot returns the slot for a destination and date, creating it
// empty on first request
// @Summary Get or create slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param request body CreateSlotRequest true "Slot request"
// @Success 200 {object} models.TourSlot
// @Failure 404 {object} map[string]interface{} "Destination not found"
// @Router /slots [post]
func (h *AvailabilityHandler) GetOrCreateSlot(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid request: " + err.Error()})
		return
	}

	date, err := models.ParseTravelDate(req.Date)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get slot")
		return
	}

	slot, err := h.ledger.GetOrCreateSlot(c.Request.Context(), req.DestinationID, date)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get slot")
		return
	}

	c.JSON(http.StatusOK, slot)
}

// QueryAvailability reports a slot's counters. Unknown slots are unavailable,
// not missing.
// @Summary Slot availability
// @Tags Availability
// @Produce json
// @Param slot_id path string true "Slot ID"
// @Success 200 {object} models.Availability
// @Router /slots/{slot_id}/availability [get]
func (h *AvailabilityHandler) QueryAvailability(c *gin.Context) {
	availability, err := h.ledger.QueryAvailability(c.Request.Context(), c.Param("slot_id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to query availability")
		return
	}

	c.JSON(http.StatusOK, availability)
}
