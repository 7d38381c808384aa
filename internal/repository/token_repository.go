package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// TokenRepo keeps the single live refresh token of each user in MySQL.
// user_id is the primary key of refresh_tokens, so a replace is one atomic
// upsert and a user never has zero or two rows mid-login.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Replace stores tokenHash as the user's refresh token, discarding any
// previous one.
func (r *TokenRepo) Replace(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE token_hash=VALUES(token_hash), expires_at=VALUES(expires_at), created_at=CURRENT_TIMESTAMP`,
		userID, tokenHash, exp.UTC())
	return err
}

// FindByHash returns the record holding tokenHash.  Expiry is not checked
// here; the token itself carries its expiry.
func (r *TokenRepo) FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrTokenNotFound
	}
	return t, err
}

// DeleteByUser removes the user's refresh token, if any.
func (r *TokenRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}
