package model

import "time"

// BookingStatus is the lifecycle state of a booking.  The only transition
// is booked -> cancelled.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "booked"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking records tickets held by a user for one showtime.
type Booking struct {
	ID              uint64        `json:"id"`
	UserID          uint64        `json:"userId"`
	MovieID         uint64        `json:"movieId"`
	TheaterID       uint64        `json:"theaterId"`
	ShowTiming      string        `json:"showTiming"`
	NumberOfTickets int           `json:"numberOfTickets"`
	BookingTime     time.Time     `json:"bookingTime"`
	Status          BookingStatus `json:"status"`
	RequestID       *string       `json:"-"` // bookings.request_id (nullable idempotency key)
}

// BookingDetail is a booking joined with its movie and theater, as shown in
// a user's history.
type BookingDetail struct {
	Booking
	MovieName       string `json:"movieName"`
	TheaterName     string `json:"theaterName"`
	TheaterLocation string `json:"theaterLocation"`
}
