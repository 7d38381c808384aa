package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type TheaterRepo struct{ db *sql.DB }

func NewTheaterRepo(db *sql.DB) *TheaterRepo { return &TheaterRepo{db: db} }

func (r *TheaterRepo) Create(ctx context.Context, t *model.Theater) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO theaters (name, location, number_of_screens) VALUES (?,?,?)",
		t.Name, t.Location, t.NumberOfScreens)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *TheaterRepo) GetByID(ctx context.Context, id uint64) (model.Theater, error) {
	var t model.Theater
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, location, number_of_screens, created_at FROM theaters WHERE id=?", id).
		Scan(&t.ID, &t.Name, &t.Location, &t.NumberOfScreens, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Theater{}, ErrTheaterNotFound
	}
	return t, err
}
