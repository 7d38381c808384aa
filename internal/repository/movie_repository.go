package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// MovieRepo stores catalog movies.  The cast list is kept as a JSON array
// column.
type MovieRepo struct{ db *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = "id,name,genre,language,duration,director,cast_members,description,release_date,created_at"

func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	cast, err := json.Marshal(m.Cast)
	if err != nil {
		return err
	}
	var release sql.NullTime
	if !m.ReleaseDate.IsZero() {
		release = sql.NullTime{Time: m.ReleaseDate, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (name, genre, language, duration, director, cast_members, description, release_date)
		 VALUES (?,?,?,?,?,?,?,?)`,
		m.Name, m.Genre, m.Language, m.Duration, m.Director, cast, m.Description, release)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id=?", id)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movie{}, ErrMovieNotFound
	}
	return m, err
}

// List returns all movies, newest first.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+movieColumns+" FROM movies ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(s rowScanner) (model.Movie, error) {
	var (
		m       model.Movie
		cast    []byte
		desc    sql.NullString
		release sql.NullTime
	)
	if err := s.Scan(&m.ID, &m.Name, &m.Genre, &m.Language, &m.Duration, &m.Director, &cast, &desc, &release, &m.CreatedAt); err != nil {
		return model.Movie{}, err
	}
	if len(cast) > 0 {
		if err := json.Unmarshal(cast, &m.Cast); err != nil {
			return model.Movie{}, err
		}
	}
	m.Description = desc.String
	if release.Valid {
		m.ReleaseDate = release.Time
	}
	return m, nil
}
