// Package repository holds the MySQL and MongoDB persistence for users,
// refresh tokens, the movie catalog and bookings.  Lookups that find nothing
// return one of the sentinel errors below rather than sql.ErrNoRows so the
// service layer can classify failures without importing database/sql.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrForbidden is returned when the caller attempts an operation on a
	// resource they do not own.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict signals a uniqueness violation other than a duplicate email.
	ErrConflict = errors.New("conflict")

	ErrUserNotFound      = errors.New("user not found")
	ErrEmailExists       = errors.New("email already exists")
	ErrTokenNotFound     = errors.New("refresh token not found")
	ErrMovieNotFound     = errors.New("movie not found")
	ErrTheaterNotFound   = errors.New("theater not found")
	ErrScreeningNotFound = errors.New("screening not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrAlreadyCancelled  = errors.New("booking already cancelled")
	// ErrRequestReused is returned when an idempotency key comes back with
	// different booking parameters.
	ErrRequestReused = errors.New("request id reused with different parameters")
)

// InsufficientSeatsError reports a booking that would exceed the remaining
// capacity of its showtime.
type InsufficientSeatsError struct {
	Available int
	Requested int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("only %d seats available, requested %d", e.Available, e.Requested)
}

// ErrInsufficientSeats matches any *InsufficientSeatsError with errors.Is.
var ErrInsufficientSeats = errors.New("insufficient seats")

func (e *InsufficientSeatsError) Is(target error) bool { return target == ErrInsufficientSeats }

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
