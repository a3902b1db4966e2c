package routes

import (
	"commonroom/handlers"
	"commonroom/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every endpoint group onto the router.
func RegisterRoutes(r *gin.Engine, bookingHandler *handlers.BookingHandler, cancellationHandler *handlers.CancellationHandler, roomsHandler *handlers.RoomsHandler) {
	r.GET("/health", handlers.Health)

	api := r.Group("/api")
	api.Use(middleware.PlatformIdentity())

	RegisterBookingRoutes(api, bookingHandler)
	RegisterCancellationRoutes(api, cancellationHandler)

	rooms := api.Group("/rooms")
	{
		rooms.GET("", roomsHandler.List)
		rooms.GET("/:slug/day", roomsHandler.Day)
	}
}
