package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service/ports"
)

type MovieInput struct {
	Name        string
	Genre       string
	Language    string
	Duration    int
	Director    string
	Cast        []string
	Description string
	ReleaseDate string // YYYY-MM-DD, optional
}

type TheaterInput struct {
	Name            string
	Location        string
	NumberOfScreens int
}

type AssignInput struct {
	MovieID      uint64
	TheaterID    uint64
	ScreenNumber int
	ShowTimings  []string
	Capacity     int // zero means the configured default
}

// CatalogService is the admin side of the catalog: movies, theaters and
// the screenings that create bookable showtimes.
type CatalogService struct {
	movies          ports.MovieRepo
	theaters        ports.TheaterRepo
	screenings      ports.ScreeningRepo
	defaultCapacity int
	logger          logger.Logger
}

func NewCatalogService(movies ports.MovieRepo, theaters ports.TheaterRepo, screenings ports.ScreeningRepo, defaultCapacity int, logger logger.Logger) *CatalogService {
	return &CatalogService{
		movies:          movies,
		theaters:        theaters,
		screenings:      screenings,
		defaultCapacity: defaultCapacity,
		logger:          logger,
	}
}

func (s *CatalogService) AddMovie(ctx context.Context, in MovieInput) (model.Movie, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Movie{}, apperr.BadRequest("Movie name is required")
	}
	if in.Duration < 0 {
		return model.Movie{}, apperr.BadRequest("Duration must not be negative")
	}
	m := model.Movie{
		Name:        strings.TrimSpace(in.Name),
		Genre:       in.Genre,
		Language:    in.Language,
		Duration:    in.Duration,
		Director:    in.Director,
		Cast:        in.Cast,
		Description: in.Description,
	}
	if in.ReleaseDate != "" {
		d, err := time.Parse(time.DateOnly, in.ReleaseDate)
		if err != nil {
			return model.Movie{}, apperr.BadRequest("releaseDate must be YYYY-MM-DD")
		}
		m.ReleaseDate = d
	}
	if err := s.movies.Create(ctx, &m); err != nil {
		return model.Movie{}, apperr.Internal(fmt.Errorf("create movie: %w", err))
	}
	s.logger.Info("movie added", logger.Any("movie_id", m.ID), logger.String("name", m.Name))
	return m, nil
}

func (s *CatalogService) AddTheater(ctx context.Context, in TheaterInput) (model.Theater, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Location) == "" {
		return model.Theater{}, apperr.BadRequest("Theater name and location are required")
	}
	if in.NumberOfScreens <= 0 {
		in.NumberOfScreens = 1
	}
	t := model.Theater{Name: strings.TrimSpace(in.Name), Location: strings.TrimSpace(in.Location), NumberOfScreens: in.NumberOfScreens}
	if err := s.theaters.Create(ctx, &t); err != nil {
		return model.Theater{}, apperr.Internal(fmt.Errorf("create theater: %w", err))
	}
	s.logger.Info("theater added", logger.Any("theater_id", t.ID), logger.String("name", t.Name))
	return t, nil
}

func (s *CatalogService) ListMovies(ctx context.Context) ([]model.Movie, error) {
	out, err := s.movies.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list movies: %w", err))
	}
	if out == nil {
		out = []model.Movie{}
	}
	return out, nil
}

// AssignScreening schedules a movie on one screen of a theater.  Each
// timing becomes a showtime with its own seat counter.
func (s *CatalogService) AssignScreening(ctx context.Context, in AssignInput) (model.Screening, error) {
	timings := make([]string, 0, len(in.ShowTimings))
	seen := map[string]bool{}
	for _, t := range in.ShowTimings {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		timings = append(timings, t)
	}
	if in.MovieID == 0 || in.TheaterID == 0 || in.ScreenNumber <= 0 || len(timings) == 0 {
		return model.Screening{}, apperr.BadRequest("All fields are required: movieId, theaterId, screenNumber, showTimings")
	}
	if in.Capacity < 0 {
		return model.Screening{}, apperr.BadRequest("Capacity must be positive")
	}
	if in.Capacity == 0 {
		in.Capacity = s.defaultCapacity
	}

	if _, err := s.movies.GetByID(ctx, in.MovieID); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return model.Screening{}, apperr.NotFound(msgMovieNotFound)
		}
		return model.Screening{}, apperr.Internal(fmt.Errorf("get movie: %w", err))
	}
	theater, err := s.theaters.GetByID(ctx, in.TheaterID)
	if err != nil {
		if errors.Is(err, repository.ErrTheaterNotFound) {
			return model.Screening{}, apperr.NotFound(msgTheaterNotFound)
		}
		return model.Screening{}, apperr.Internal(fmt.Errorf("get theater: %w", err))
	}
	if in.ScreenNumber > theater.NumberOfScreens {
		return model.Screening{}, apperr.BadRequest(fmt.Sprintf("Theater has only %d screens", theater.NumberOfScreens))
	}

	sc := model.Screening{
		MovieID:      in.MovieID,
		TheaterID:    in.TheaterID,
		ScreenNumber: in.ScreenNumber,
		ShowTimings:  timings,
		Capacity:     in.Capacity,
	}
	if err := s.screenings.Create(ctx, &sc); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Screening{}, apperr.Conflict("Screening already exists for this movie, theater and timing")
		}
		return model.Screening{}, apperr.Internal(fmt.Errorf("create screening: %w", err))
	}
	s.logger.Info("screening assigned",
		logger.Any("screening_id", sc.ID),
		logger.Any("movie_id", sc.MovieID),
		logger.Any("theater_id", sc.TheaterID),
		logger.Int("timings", len(timings)),
	)
	return sc, nil
}
