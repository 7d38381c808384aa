package ports

import (
	"context"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type MovieRepo interface {
	Create(ctx context.Context, m *model.Movie) error
	GetByID(ctx context.Context, id uint64) (model.Movie, error)
	List(ctx context.Context) ([]model.Movie, error)
}

type TheaterRepo interface {
	Create(ctx context.Context, t *model.Theater) error
	GetByID(ctx context.Context, id uint64) (model.Theater, error)
}

type ScreeningRepo interface {
	Create(ctx context.Context, s *model.Screening) error
	ListByMovie(ctx context.Context, movieID uint64) ([]model.TheaterScreening, error)
	GetShowtime(ctx context.Context, movieID, theaterID uint64, showTiming string) (model.Showtime, error)
}
