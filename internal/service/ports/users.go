package ports

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type UserRepo interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenRepo holds at most one refresh token per user.  Replace must swap
// the user's token atomically.
type TokenRepo interface {
	Replace(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	DeleteByUser(ctx context.Context, userID uint64) error
}
