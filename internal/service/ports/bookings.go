package ports

import (
	"context"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// BookingRepo must perform the capacity check and the insert of Reserve as
// one atomic step for a showtime key.
type BookingRepo interface {
	Reserve(ctx context.Context, p repository.ReserveParams) (repository.ReserveResult, error)
	Cancel(ctx context.Context, bookingID, userID uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}
