package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// BookingRepo owns the bookings table and the booked_seats counter of
// showtimes.  Every write that changes one also changes the other inside
// the same transaction.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// ReserveParams describes one booking attempt.  RequestID is optional; when
// set, a repeated attempt returns the booking created by the first one.
type ReserveParams struct {
	UserID     uint64
	MovieID    uint64
	TheaterID  uint64
	ShowTiming string
	Tickets    int
	RequestID  string
	BookedAt   time.Time
}

// Matches reports whether b was created from the same booking request as p.
// A request id replayed with different parameters is a client error.
func (p ReserveParams) Matches(b model.Booking) bool {
	return b.UserID == p.UserID && b.MovieID == p.MovieID && b.TheaterID == p.TheaterID &&
		b.ShowTiming == p.ShowTiming && b.NumberOfTickets == p.Tickets
}

// ReserveResult is the booking and the seats left after it.  Replayed is
// true when the booking already existed for the request id.
type ReserveResult struct {
	Booking   model.Booking
	Available int
	Replayed  bool
}

const bookingColumns = "id,user_id,movie_id,theater_id,show_timing,number_of_tickets,booking_time,status,request_id"

// Reserve checks capacity and records the booking as one step.  The
// conditional counter update only succeeds while booked_seats + tickets
// stays within capacity, so concurrent reservations for the same showtime
// can never oversell it.
func (r *BookingRepo) Reserve(ctx context.Context, p ReserveParams) (res ReserveResult, err error) {
	if p.RequestID != "" {
		prev, perr := r.replay(ctx, p)
		if !errors.Is(perr, ErrBookingNotFound) {
			return prev, perr
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ReserveResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	upd, err := tx.ExecContext(ctx,
		`UPDATE showtimes SET booked_seats = booked_seats + ?
		 WHERE movie_id=? AND theater_id=? AND show_timing=? AND booked_seats + ? <= capacity`,
		p.Tickets, p.MovieID, p.TheaterID, p.ShowTiming, p.Tickets)
	if err != nil {
		return ReserveResult{}, err
	}
	n, err := upd.RowsAffected()
	if err != nil {
		return ReserveResult{}, err
	}
	if n == 0 {
		avail, aerr := r.available(ctx, tx, p.MovieID, p.TheaterID, p.ShowTiming)
		if aerr != nil {
			return ReserveResult{}, aerr
		}
		return ReserveResult{}, &InsufficientSeatsError{Available: avail, Requested: p.Tickets}
	}

	var requestID sql.NullString
	if p.RequestID != "" {
		requestID = sql.NullString{String: p.RequestID, Valid: true}
	}
	ins, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, movie_id, theater_id, show_timing, number_of_tickets, booking_time, status, request_id)
		 VALUES (?,?,?,?,?,?,?,?)`,
		p.UserID, p.MovieID, p.TheaterID, p.ShowTiming, p.Tickets, p.BookedAt.UTC(), string(model.BookingBooked), requestID)
	if err != nil {
		if isDuplicateKey(err) && p.RequestID != "" {
			// a concurrent retry with the same key won; hand back its booking
			_ = tx.Rollback()
			prev, perr := r.replay(ctx, p)
			if perr != nil {
				return ReserveResult{}, perr
			}
			return prev, nil
		}
		return ReserveResult{}, err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return ReserveResult{}, err
	}

	avail, err := r.available(ctx, tx, p.MovieID, p.TheaterID, p.ShowTiming)
	if err != nil {
		return ReserveResult{}, err
	}
	if err = tx.Commit(); err != nil {
		return ReserveResult{}, err
	}

	b := model.Booking{
		ID:              uint64(id),
		UserID:          p.UserID,
		MovieID:         p.MovieID,
		TheaterID:       p.TheaterID,
		ShowTiming:      p.ShowTiming,
		NumberOfTickets: p.Tickets,
		BookingTime:     p.BookedAt.UTC(),
		Status:          model.BookingBooked,
	}
	if requestID.Valid {
		b.RequestID = &requestID.String
	}
	return ReserveResult{Booking: b, Available: avail}, nil
}

// Cancel marks the booking cancelled and returns its seats to the showtime.
// It fails with ErrBookingNotFound, ErrForbidden (not the owner) or
// ErrAlreadyCancelled, checked in that order.
func (r *BookingRepo) Cancel(ctx context.Context, bookingID, userID uint64) (b model.Booking, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b, err = scanBooking(tx.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id=? FOR UPDATE", bookingID))
	if err != nil {
		return model.Booking{}, err
	}
	if b.UserID != userID {
		return model.Booking{}, ErrForbidden
	}
	if b.Status == model.BookingCancelled {
		return model.Booking{}, ErrAlreadyCancelled
	}

	if _, err = tx.ExecContext(ctx,
		"UPDATE bookings SET status=? WHERE id=? AND status=?",
		string(model.BookingCancelled), b.ID, string(model.BookingBooked)); err != nil {
		return model.Booking{}, err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE showtimes SET booked_seats = booked_seats - ?
		 WHERE movie_id=? AND theater_id=? AND show_timing=? AND booked_seats >= ?`,
		b.NumberOfTickets, b.MovieID, b.TheaterID, b.ShowTiming, b.NumberOfTickets); err != nil {
		return model.Booking{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingCancelled
	return b, nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id=?", id))
}

// ListByUser returns the user's bookings with movie and theater details,
// newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	const q = `SELECT b.id, b.user_id, b.movie_id, b.theater_id, b.show_timing, b.number_of_tickets,
	                  b.booking_time, b.status, b.request_id,
	                  COALESCE(m.name, ''), COALESCE(t.name, ''), COALESCE(t.location, '')
	           FROM bookings b
	           LEFT JOIN movies m ON m.id = b.movie_id
	           LEFT JOIN theaters t ON t.id = b.theater_id
	           WHERE b.user_id = ?
	           ORDER BY b.booking_time DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BookingDetail{}
	for rows.Next() {
		var (
			d         model.BookingDetail
			status    string
			requestID sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.MovieID, &d.TheaterID, &d.ShowTiming, &d.NumberOfTickets,
			&d.BookingTime, &status, &requestID, &d.MovieName, &d.TheaterName, &d.TheaterLocation); err != nil {
			return nil, err
		}
		d.Status = model.BookingStatus(status)
		if requestID.Valid {
			d.RequestID = &requestID.String
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// replay returns the booking already stored for p's request id, or
// ErrRequestReused when that booking was made with other parameters.
func (r *BookingRepo) replay(ctx context.Context, p ReserveParams) (ReserveResult, error) {
	b, err := r.findByRequest(ctx, r.db, p.UserID, p.RequestID)
	if err != nil {
		return ReserveResult{}, err
	}
	if !p.Matches(b) {
		return ReserveResult{}, ErrRequestReused
	}
	avail, err := r.available(ctx, r.db, b.MovieID, b.TheaterID, b.ShowTiming)
	if err != nil {
		return ReserveResult{}, err
	}
	return ReserveResult{Booking: b, Available: avail, Replayed: true}, nil
}

func (r *BookingRepo) findByRequest(ctx context.Context, q queryer, userID uint64, requestID string) (model.Booking, error) {
	return scanBooking(q.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id=? AND request_id=?", userID, requestID))
}

// available reports capacity - booked_seats for the key, or
// ErrScreeningNotFound when no showtime row exists.
func (r *BookingRepo) available(ctx context.Context, q queryer, movieID, theaterID uint64, showTiming string) (int, error) {
	var capacity, booked int
	err := q.QueryRowContext(ctx,
		"SELECT capacity, booked_seats FROM showtimes WHERE movie_id=? AND theater_id=? AND show_timing=?",
		movieID, theaterID, showTiming).Scan(&capacity, &booked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrScreeningNotFound
	}
	if err != nil {
		return 0, err
	}
	if booked >= capacity {
		return 0, nil
	}
	return capacity - booked, nil
}

func scanBooking(row *sql.Row) (model.Booking, error) {
	var (
		b         model.Booking
		status    string
		requestID sql.NullString
	)
	err := row.Scan(&b.ID, &b.UserID, &b.MovieID, &b.TheaterID, &b.ShowTiming, &b.NumberOfTickets,
		&b.BookingTime, &status, &requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	if requestID.Valid {
		b.RequestID = &requestID.String
	}
	return b, nil
}
