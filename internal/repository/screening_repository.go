package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ScreeningRepo manages screenings and their per-timing showtime rows.
type ScreeningRepo struct{ db *sql.DB }

func NewScreeningRepo(db *sql.DB) *ScreeningRepo { return &ScreeningRepo{db: db} }

// Create inserts the screening and one showtimes row per timing in a single
// transaction.  A timing already scheduled for the same movie and theater
// yields ErrConflict.
func (r *ScreeningRepo) Create(ctx context.Context, s *model.Screening) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO screenings (movie_id, theater_id, screen_number, capacity) VALUES (?,?,?,?)",
		s.MovieID, s.TheaterID, s.ScreenNumber, s.Capacity)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)

	for _, timing := range s.ShowTimings {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO showtimes (screening_id, movie_id, theater_id, show_timing, capacity)
			 VALUES (?,?,?,?,?)`,
			s.ID, s.MovieID, s.TheaterID, timing, s.Capacity)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrConflict
			}
			return err
		}
	}
	return tx.Commit()
}

// ListByMovie returns every theater screen showing the movie together with
// its timings, ordered by theater name.
func (r *ScreeningRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.TheaterScreening, error) {
	const q = `SELECT s.id, t.id, t.name, t.location, s.screen_number, st.show_timing
	           FROM screenings s
	           JOIN theaters t ON t.id = s.theater_id
	           JOIN showtimes st ON st.screening_id = s.id
	           WHERE s.movie_id = ?
	           ORDER BY t.name, s.screen_number, st.id`
	rows, err := r.db.QueryContext(ctx, q, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []model.TheaterScreening
		index = map[uint64]int{}
	)
	for rows.Next() {
		var (
			screeningID uint64
			ts          model.TheaterScreening
			timing      string
		)
		if err := rows.Scan(&screeningID, &ts.TheaterID, &ts.TheaterName, &ts.Location, &ts.ScreenNumber, &timing); err != nil {
			return nil, err
		}
		i, ok := index[screeningID]
		if !ok {
			i = len(out)
			index[screeningID] = i
			out = append(out, ts)
		}
		out[i].ShowTimings = append(out[i].ShowTimings, timing)
	}
	return out, rows.Err()
}

// GetShowtime loads the capacity row for a (movie, theater, timing) key.
func (r *ScreeningRepo) GetShowtime(ctx context.Context, movieID, theaterID uint64, showTiming string) (model.Showtime, error) {
	var st model.Showtime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, screening_id, movie_id, theater_id, show_timing, capacity, booked_seats
		 FROM showtimes WHERE movie_id=? AND theater_id=? AND show_timing=?`,
		movieID, theaterID, showTiming).
		Scan(&st.ID, &st.ScreeningID, &st.MovieID, &st.TheaterID, &st.ShowTiming, &st.Capacity, &st.BookedSeats)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Showtime{}, ErrScreeningNotFound
	}
	return st, err
}
