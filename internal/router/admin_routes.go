package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/policy"
)

// RegisterCatalog registers the admin catalog endpoints.  cache wraps the
// movie listing only and runs after the permission check; invalidate drops
// that listing once a new movie is stored.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, table *policy.Table, gate, cache, invalidate echo.MiddlewareFunc) {
	admin := middleware.RequirePermission(table, policy.ManageCatalog)

	e.POST("/movies/add-movie", h.AddMovie, gate, admin, invalidate)
	e.POST("/movies/add-theater", h.AddTheater, gate, admin)
	e.GET("/movies/list-movie", h.ListMovies, gate, admin, cache)
	e.POST("/movies/assign-movie-to-theater", h.AssignScreening, gate, admin)
}
