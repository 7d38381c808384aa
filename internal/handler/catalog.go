package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// Catalog is the admin catalog service.
type Catalog interface {
	AddMovie(ctx context.Context, in service.MovieInput) (model.Movie, error)
	AddTheater(ctx context.Context, in service.TheaterInput) (model.Theater, error)
	ListMovies(ctx context.Context) ([]model.Movie, error)
	AssignScreening(ctx context.Context, in service.AssignInput) (model.Screening, error)
}

// CatalogHandler serves the admin-only catalog endpoints.
type CatalogHandler struct {
	catalog Catalog
}

func NewCatalogHandler(c Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// ----- DTOs -----

type movieReq struct {
	Name        string   `json:"name" validate:"required"`
	Genre       string   `json:"genre"`
	Language    string   `json:"language"`
	Duration    int      `json:"duration" validate:"gte=0"`
	Director    string   `json:"director"`
	Cast        []string `json:"cast"`
	Description string   `json:"description"`
	ReleaseDate string   `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
}

type theaterReq struct {
	Name            string `json:"name" validate:"required"`
	Location        string `json:"location" validate:"required"`
	NumberOfScreens int    `json:"numberOfScreens" validate:"gte=0"`
}

type assignReq struct {
	MovieID      uint64   `json:"movieId" validate:"required"`
	TheaterID    uint64   `json:"theaterId" validate:"required"`
	ScreenNumber int      `json:"screenNumber" validate:"required,gte=1"`
	ShowTimings  []string `json:"showTimings" validate:"required,min=1,dive,required"`
	Capacity     int      `json:"capacity" validate:"omitempty,gte=1"`
}

// AddMovie: POST /movies/add-movie
func (h *CatalogHandler) AddMovie(c echo.Context) error {
	var req movieReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	m, err := h.catalog.AddMovie(ctx, service.MovieInput{
		Name:        req.Name,
		Genre:       req.Genre,
		Language:    req.Language,
		Duration:    req.Duration,
		Director:    req.Director,
		Cast:        req.Cast,
		Description: req.Description,
		ReleaseDate: req.ReleaseDate,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Movie added successfully", echo.Map{"movie": m})
}

// AddTheater: POST /movies/add-theater
func (h *CatalogHandler) AddTheater(c echo.Context) error {
	var req theaterReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.catalog.AddTheater(ctx, service.TheaterInput{
		Name:            req.Name,
		Location:        req.Location,
		NumberOfScreens: req.NumberOfScreens,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Theater added successfully", echo.Map{"theater": t})
}

// ListMovies: GET /movies/list-movie
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	movies, err := h.catalog.ListMovies(ctx)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"total": len(movies), "movies": movies})
}

// AssignScreening: POST /movies/assign-movie-to-theater
func (h *CatalogHandler) AssignScreening(c echo.Context) error {
	var req assignReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	s, err := h.catalog.AssignScreening(ctx, service.AssignInput{
		MovieID:      req.MovieID,
		TheaterID:    req.TheaterID,
		ScreenNumber: req.ScreenNumber,
		ShowTimings:  req.ShowTimings,
		Capacity:     req.Capacity,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Movie assigned to theater successfully", echo.Map{"screening": s})
}
