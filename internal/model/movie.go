package model

import "time"

// Movie is a catalog entry created by an admin.
type Movie struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Genre       string    `json:"genre"`
	Language    string    `json:"language"`
	Duration    int       `json:"duration"` // minutes
	Director    string    `json:"director"`
	Cast        []string  `json:"cast"`
	Description string    `json:"description,omitempty"`
	ReleaseDate time.Time `json:"releaseDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Theater is a venue with one or more screens.
type Theater struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	NumberOfScreens int       `json:"numberOfScreens"`
	CreatedAt       time.Time `json:"createdAt"`
}
