package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API on router
func RegisterRoutes(router *gin.Engine, availability *AvailabilityHandler, bookings *BookingHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/destinations/:destination_id/availability", availability.CheckAvailability)
		v1.POST("/slots", availability.GetOrCreateSlot)
		v1.GET("/slots/:slot_id/availability", availability.QueryAvailability)

		v1.POST("/bookings", bookings.CreateBooking)
		v1.GET("/bookings/:booking_id", bookings.GetBooking)
		v1.POST("/bookings/:booking_id/pay", bookings.PayBooking)
		v1.POST("/bookings/:booking_id/cancel", bookings.CancelBooking)
		v1.GET("/bookings/:booking_id/payments", bookings.ListPayments)
		v1.GET("/bookings/:booking_id/receipt", bookings.GetReceipt)
		v1.GET("/users/:user_id/bookings", bookings.ListUserBookings)
	}
}
