// Package queue carries booking events over RabbitMQ: a publisher used by the
// booking service and a background consumer that appends each event to the
// booking notification log.
package queue

import (
	"fmt"
	"time"
)

// Queue names.  Each event type has its own durable queue.
const (
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking is created or cancelled.  It
// holds enough for downstream consumers to notify without querying the
// primary database.
type BookingEvent struct {
	Type            string    `json:"type"`
	BookingID       uint64    `json:"booking_id"`
	UserID          uint64    `json:"user_id"`
	UserEmail       string    `json:"user_email,omitempty"`
	MovieID         uint64    `json:"movie_id"`
	MovieName       string    `json:"movie_name,omitempty"`
	TheaterID       uint64    `json:"theater_id"`
	TheaterName     string    `json:"theater_name,omitempty"`
	ShowTiming      string    `json:"show_timing"`
	NumberOfTickets int       `json:"number_of_tickets"`
	AvailableSeats  int       `json:"available_seats"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// LogLine renders the event as a single line of the notification log.
func (ev BookingEvent) LogLine() string {
	verb := "Booking confirmed"
	if ev.Type == BookingCancelled {
		verb = "Booking cancelled"
	}
	return fmt.Sprintf("[%s] %s | booking_id=%d | user_id=%d | email=%q | movie=%q | theater=%q | show=%q | tickets=%d | available=%d\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), verb, ev.BookingID, ev.UserID, ev.UserEmail,
		ev.MovieName, ev.TheaterName, ev.ShowTiming, ev.NumberOfTickets, ev.AvailableSeats)
}
