package model

// Screening assigns a movie to one screen of a theater with a list of
// show timings.
type Screening struct {
	ID           uint64   // screenings.id
	MovieID      uint64   // screenings.movie_id
	TheaterID    uint64   // screenings.theater_id
	ScreenNumber int      // screenings.screen_number
	ShowTimings  []string // one showtimes row per timing
	Capacity     int      // seats per showtime
}

// Showtime is the capacity row for one (movie, theater, showTiming) key.
// BookedSeats is the counter the allocator serialises on; it always equals
// the sum of tickets over booked bookings for the key.
type Showtime struct {
	ID          uint64 `json:"-"`
	ScreeningID uint64 `json:"-"`
	MovieID     uint64 `json:"movieId"`
	TheaterID   uint64 `json:"theaterId"`
	ShowTiming  string `json:"showTiming"`
	Capacity    int    `json:"capacity"`
	BookedSeats int    `json:"bookedSeats"`
}

// Available returns the number of seats still free.
func (s Showtime) Available() int {
	if s.BookedSeats >= s.Capacity {
		return 0
	}
	return s.Capacity - s.BookedSeats
}

// TheaterScreening is one theater entry in the screening listing of a movie.
type TheaterScreening struct {
	TheaterID    uint64   `json:"theaterId"`
	TheaterName  string   `json:"theaterName"`
	Location     string   `json:"location"`
	ScreenNumber int      `json:"screenNumber"`
	ShowTimings  []string `json:"showTimings"`
}
