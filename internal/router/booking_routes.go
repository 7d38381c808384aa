package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/policy"
)

// RegisterBookings registers the booking endpoints under /movies.  Each
// route names the permission it needs; ownership checks that depend on the
// booking itself happen in the allocator.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, table *policy.Table, gate echo.MiddlewareFunc) {
	g := e.Group("/movies")

	g.GET("/:movieId/theaters", h.ListScreenings, gate, middleware.RequirePermission(table, policy.ListScreenings))
	g.GET("/:movieId/theaters/:theaterId/availability", h.Availability, gate, middleware.RequirePermission(table, policy.ReadAvailability))

	g.POST("/bookings", h.BookTickets, gate, middleware.RequirePermission(table, policy.CreateBooking))
	g.DELETE("/bookings/cancel/:bookingId", h.CancelBooking, gate, middleware.RequirePermission(table, policy.CancelBooking))
	// own vs any history is decided per request
	g.GET("/bookings/history/:userId", h.BookingHistory, gate, middleware.RequireAuth())
}
