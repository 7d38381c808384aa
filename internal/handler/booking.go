package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// IdempotencyHeader carries the client's request id for BookTickets.
const IdempotencyHeader = "Idempotency-Key"

// Bookings is the booking allocator as the HTTP layer sees it.
type Bookings interface {
	ListScreenings(ctx context.Context, movieID uint64) ([]model.TheaterScreening, error)
	Availability(ctx context.Context, movieID, theaterID uint64, showTiming string) (model.Showtime, error)
	BookTickets(ctx context.Context, req service.BookRequest) (service.BookResult, error)
	CancelBooking(ctx context.Context, userID, bookingID uint64) (model.Booking, error)
	BookingHistory(ctx context.Context, requester *service.Claims, targetUserID uint64) ([]model.BookingDetail, error)
}

type BookingHandler struct {
	bookings Bookings
}

func NewBookingHandler(b Bookings) *BookingHandler {
	return &BookingHandler{bookings: b}
}

// bookReq has no validate tags: missing fields are reported with a single
// message by the allocator.
type bookReq struct {
	MovieID         uint64 `json:"movieId"`
	TheaterID       uint64 `json:"theaterId"`
	ShowTiming      string `json:"showTiming"`
	NumberOfTickets int    `json:"numberOfTickets"`
}

// ListScreenings: GET /movies/:movieId/theaters
func (h *BookingHandler) ListScreenings(c echo.Context) error {
	movieID, err := pathID(c, "movieId")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	theaters, err := h.bookings.ListScreenings(ctx, movieID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{
		"movieId":       movieID,
		"totalTheaters": len(theaters),
		"theaters":      theaters,
	})
}

// Availability: GET /movies/:movieId/theaters/:theaterId/availability?showTiming=
func (h *BookingHandler) Availability(c echo.Context) error {
	movieID, err := pathID(c, "movieId")
	if err != nil {
		return err
	}
	theaterID, err := pathID(c, "theaterId")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	st, err := h.bookings.Availability(ctx, movieID, theaterID, strings.TrimSpace(c.QueryParam("showTiming")))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{
		"movieId":        st.MovieID,
		"theaterId":      st.TheaterID,
		"showTiming":     st.ShowTiming,
		"capacity":       st.Capacity,
		"bookedSeats":    st.BookedSeats,
		"availableSeats": st.Available(),
	})
}

// BookTickets: POST /movies/bookings
func (h *BookingHandler) BookTickets(c echo.Context) error {
	claims, found := middleware.ClaimsFrom(c)
	if !found {
		return apperr.Unauthorized("Authentication required")
	}
	var req bookReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.bookings.BookTickets(ctx, service.BookRequest{
		UserID:          claims.UserID,
		MovieID:         req.MovieID,
		TheaterID:       req.TheaterID,
		ShowTiming:      strings.TrimSpace(req.ShowTiming),
		NumberOfTickets: req.NumberOfTickets,
		RequestID:       strings.TrimSpace(c.Request().Header.Get(IdempotencyHeader)),
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Booking successful", echo.Map{
		"bookingId":      res.Booking.ID,
		"availableSeats": res.AvailableSeats,
	})
}

// CancelBooking: DELETE /movies/bookings/cancel/:bookingId
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	claims, found := middleware.ClaimsFrom(c)
	if !found {
		return apperr.Unauthorized("Authentication required")
	}
	bookingID, err := pathID(c, "bookingId")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.bookings.CancelBooking(ctx, claims.UserID, bookingID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Booking cancelled successfully", echo.Map{"booking": b})
}

// BookingHistory: GET /movies/bookings/history/:userId
func (h *BookingHandler) BookingHistory(c echo.Context) error {
	claims, found := middleware.ClaimsFrom(c)
	if !found {
		return apperr.Unauthorized("Authentication required")
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	history, err := h.bookings.BookingHistory(ctx, claims, userID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", echo.Map{"bookings": history})
}
