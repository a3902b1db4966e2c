package routes

import (
	"commonroom/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers the booking conversation endpoints. Each
// endpoint is one state-machine transition.
func RegisterBookingRoutes(api *gin.RouterGroup, h *handlers.BookingHandler) {
	booking := api.Group("/booking")
	{
		booking.POST("/start", h.Start)
		booking.POST("/date", h.ChooseDate)
		booking.POST("/time", h.ChooseTime)
		booking.POST("/duration", h.ChooseDuration)
		booking.POST("/name", h.SetName)
		booking.GET("/confirmation", h.Confirmation)
		booking.POST("/back", h.Back)
		booking.POST("/confirm", h.Confirm)
		booking.POST("/abort", h.Abort)
	}
}

// RegisterCancellationRoutes registers the two-step cancellation endpoints.
func RegisterCancellationRoutes(api *gin.RouterGroup, h *handlers.CancellationHandler) {
	cancellation := api.Group("/cancellation")
	{
		cancellation.GET("/candidates", h.List)
		cancellation.POST("/select", h.Select)
		cancellation.POST("/confirm", h.Confirm)
		cancellation.POST("/dismiss", h.Dismiss)
	}
}
