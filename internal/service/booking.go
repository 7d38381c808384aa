package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/policy"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service/ports"
)

const (
	msgBookingFieldsRequired = "All fields are required: movieId, theaterId, showTiming, numberOfTickets"
	msgMovieNotFound         = "Movie not found"
	msgTheaterNotFound       = "Theater not found"
	msgScreeningNotFound     = "No screening found for this movie, theater, and timing"
	msgNoTheaters            = "No theaters found for this movie."
	msgBookingNotFound       = "Booking not found"
	msgNotYourBooking        = "You can only cancel your own bookings"
	msgAlreadyCancelled      = "Booking is already cancelled"
	msgAccessDenied          = "Access denied"
	msgRequestReused         = "Idempotency-Key was already used for a different booking"
)

const publishTimeout = 5 * time.Second

// BookRequest is one ticket purchase.  RequestID is an optional
// client-chosen idempotency key.
type BookRequest struct {
	UserID          uint64
	MovieID         uint64
	TheaterID       uint64
	ShowTiming      string
	NumberOfTickets int
	RequestID       string
}

type BookResult struct {
	Booking        model.Booking
	AvailableSeats int
}

// BookingAllocator sells seats of showtimes without overselling.  The
// capacity check and the insert for one (movie, theater, showTiming) key are
// serialised twice: by an in-process per-key lock and by the repository's
// conditional counter update.
type BookingAllocator struct {
	movies     ports.MovieRepo
	theaters   ports.TheaterRepo
	screenings ports.ScreeningRepo
	bookings   ports.BookingRepo
	users      ports.UserRepo
	events     ports.EventPublisher
	access     *policy.Table
	logger     logger.Logger

	locks *keyLock
	now   func() time.Time
	wg    sync.WaitGroup
}

// NewBookingAllocator wires the allocator.  events may be nil, in which case
// no booking events are published.
func NewBookingAllocator(
	movies ports.MovieRepo,
	theaters ports.TheaterRepo,
	screenings ports.ScreeningRepo,
	bookings ports.BookingRepo,
	users ports.UserRepo,
	events ports.EventPublisher,
	access *policy.Table,
	logger logger.Logger,
) *BookingAllocator {
	return &BookingAllocator{
		movies:     movies,
		theaters:   theaters,
		screenings: screenings,
		bookings:   bookings,
		users:      users,
		events:     events,
		access:     access,
		logger:     logger,
		locks:      newKeyLock(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ListScreenings returns the theaters showing movieID with their timings.
func (a *BookingAllocator) ListScreenings(ctx context.Context, movieID uint64) ([]model.TheaterScreening, error) {
	out, err := a.screenings.ListByMovie(ctx, movieID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list screenings: %w", err))
	}
	if len(out) == 0 {
		return nil, apperr.NotFound(msgNoTheaters)
	}
	return out, nil
}

// Availability reports capacity and free seats of one showtime.
func (a *BookingAllocator) Availability(ctx context.Context, movieID, theaterID uint64, showTiming string) (model.Showtime, error) {
	if movieID == 0 || theaterID == 0 || showTiming == "" {
		return model.Showtime{}, apperr.BadRequest("movieId, theaterId and showTiming are required")
	}
	st, err := a.screenings.GetShowtime(ctx, movieID, theaterID, showTiming)
	if errors.Is(err, repository.ErrScreeningNotFound) {
		return model.Showtime{}, apperr.NotFound(msgScreeningNotFound)
	}
	if err != nil {
		return model.Showtime{}, apperr.Internal(fmt.Errorf("get showtime: %w", err))
	}
	return st, nil
}

// BookTickets validates req, then reserves the seats if the showtime still
// has enough of them.
func (a *BookingAllocator) BookTickets(ctx context.Context, req BookRequest) (BookResult, error) {
	if req.UserID == 0 || req.MovieID == 0 || req.TheaterID == 0 || req.ShowTiming == "" || req.NumberOfTickets <= 0 {
		return BookResult{}, apperr.BadRequest(msgBookingFieldsRequired)
	}

	movie, err := a.movies.GetByID(ctx, req.MovieID)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return BookResult{}, apperr.NotFound(msgMovieNotFound)
	}
	if err != nil {
		return BookResult{}, apperr.Internal(fmt.Errorf("get movie: %w", err))
	}
	theater, err := a.theaters.GetByID(ctx, req.TheaterID)
	if errors.Is(err, repository.ErrTheaterNotFound) {
		return BookResult{}, apperr.NotFound(msgTheaterNotFound)
	}
	if err != nil {
		return BookResult{}, apperr.Internal(fmt.Errorf("get theater: %w", err))
	}
	if _, err := a.Availability(ctx, req.MovieID, req.TheaterID, req.ShowTiming); err != nil {
		return BookResult{}, err
	}

	unlock := a.locks.Lock(showtimeKey(req.MovieID, req.TheaterID, req.ShowTiming))
	res, err := a.bookings.Reserve(ctx, repository.ReserveParams{
		UserID:     req.UserID,
		MovieID:    req.MovieID,
		TheaterID:  req.TheaterID,
		ShowTiming: req.ShowTiming,
		Tickets:    req.NumberOfTickets,
		RequestID:  req.RequestID,
		BookedAt:   a.now(),
	})
	unlock()

	var short *repository.InsufficientSeatsError
	switch {
	case errors.As(err, &short):
		return BookResult{}, apperr.BadRequest(fmt.Sprintf("Only %d seats available. Requested: %d", short.Available, short.Requested)).WithCause(err)
	case errors.Is(err, repository.ErrScreeningNotFound):
		return BookResult{}, apperr.NotFound(msgScreeningNotFound)
	case errors.Is(err, repository.ErrRequestReused):
		return BookResult{}, apperr.Conflict(msgRequestReused).WithCause(err)
	case err != nil:
		return BookResult{}, apperr.Internal(fmt.Errorf("reserve: %w", err))
	}

	if res.Replayed {
		a.logger.Info("booking request replayed",
			logger.Any("booking_id", res.Booking.ID),
			logger.String("request_id", req.RequestID),
		)
		return BookResult{Booking: res.Booking, AvailableSeats: res.Available}, nil
	}

	a.logger.Info("booking created",
		logger.Any("booking_id", res.Booking.ID),
		logger.Any("user_id", req.UserID),
		logger.Any("movie_id", req.MovieID),
		logger.Any("theater_id", req.TheaterID),
		logger.String("show_timing", req.ShowTiming),
		logger.Int("tickets", req.NumberOfTickets),
		logger.Int("available", res.Available),
	)
	a.publish(ctx, queue.BookingConfirmed, res.Booking, movie.Name, theater.Name, res.Available)

	return BookResult{Booking: res.Booking, AvailableSeats: res.Available}, nil
}

// CancelBooking cancels one of the caller's bookings and frees its seats.
func (a *BookingAllocator) CancelBooking(ctx context.Context, userID, bookingID uint64) (model.Booking, error) {
	b, err := a.bookings.Cancel(ctx, bookingID, userID)
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return model.Booking{}, apperr.NotFound(msgBookingNotFound)
	case errors.Is(err, repository.ErrForbidden):
		return model.Booking{}, apperr.Forbidden(msgNotYourBooking)
	case errors.Is(err, repository.ErrAlreadyCancelled):
		return model.Booking{}, apperr.BadRequest(msgAlreadyCancelled)
	case err != nil:
		return model.Booking{}, apperr.Internal(fmt.Errorf("cancel booking: %w", err))
	}

	a.logger.Info("booking cancelled",
		logger.Any("booking_id", b.ID),
		logger.Any("user_id", userID),
		logger.Int("tickets", b.NumberOfTickets),
	)

	available := -1
	if st, err := a.screenings.GetShowtime(ctx, b.MovieID, b.TheaterID, b.ShowTiming); err == nil {
		available = st.Available()
	}
	var movieName, theaterName string
	if m, err := a.movies.GetByID(ctx, b.MovieID); err == nil {
		movieName = m.Name
	}
	if t, err := a.theaters.GetByID(ctx, b.TheaterID); err == nil {
		theaterName = t.Name
	}
	a.publish(ctx, queue.BookingCancelled, b, movieName, theaterName, available)
	return b, nil
}

// BookingHistory lists targetUserID's bookings, newest first.  Callers may
// read their own history, or anyone's with the history:any permission.
func (a *BookingAllocator) BookingHistory(ctx context.Context, requester *Claims, targetUserID uint64) ([]model.BookingDetail, error) {
	if requester == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	own := requester.UserID == targetUserID && a.access.Allows(requester.Role, policy.ReadOwnHistory)
	if !own && !a.access.Allows(requester.Role, policy.ReadAnyHistory) {
		return nil, apperr.Forbidden(msgAccessDenied)
	}
	out, err := a.bookings.ListByUser(ctx, targetUserID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list bookings: %w", err))
	}
	return out, nil
}

// Close waits for in-flight event publishes.
func (a *BookingAllocator) Close() {
	a.wg.Wait()
}

// publish sends the event in the background.  Broker failures are logged
// and never reach the caller.
func (a *BookingAllocator) publish(ctx context.Context, typ string, b model.Booking, movieName, theaterName string, available int) {
	if a.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:            typ,
		BookingID:       b.ID,
		UserID:          b.UserID,
		MovieID:         b.MovieID,
		MovieName:       movieName,
		TheaterID:       b.TheaterID,
		TheaterName:     theaterName,
		ShowTiming:      b.ShowTiming,
		NumberOfTickets: b.NumberOfTickets,
		AvailableSeats:  available,
		OccurredAt:      a.now(),
	}
	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if a.users != nil {
			if u, err := a.users.GetByID(ctx, ev.UserID); err == nil {
				ev.UserEmail = u.Email
			}
		}
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := a.events.Publish(pctx, ev); err != nil {
			a.logger.Warn("publish booking event failed",
				logger.String("type", typ),
				logger.Any("booking_id", b.ID),
				logger.String("error", err.Error()),
			)
		}
	}()
}

func showtimeKey(movieID, theaterID uint64, showTiming string) string {
	return fmt.Sprintf("%d:%d:%s", movieID, theaterID, showTiming)
}
