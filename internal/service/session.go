package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service/ports"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// Claims is the decoded payload of an access or refresh token.
type Claims = utils.Claims

// Refresh failure reasons.  They are distinguishable with errors.Is and
// their text is the client-facing message.
var (
	ErrRefreshMissing  = errors.New("refresh token required")
	ErrRefreshNotValid = errors.New("refresh token not valid")
	ErrRefreshExpired  = errors.New("refresh token expired")
	ErrRefreshInvalid  = errors.New("refresh token invalid")
)

// Identity is who a token pair is issued for.
type Identity struct {
	UserID uint64
	Name   string
	Email  string
	Role   model.Role
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type SessionConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// SessionManager issues and verifies tokens.  Access tokens are stateless;
// refresh tokens are also stored (as a hash), one per user, so a new login
// invalidates the previous refresh token.
type SessionManager struct {
	cfg    SessionConfig
	tokens ports.TokenRepo
	logger logger.Logger
	now    func() time.Time
}

func NewSessionManager(cfg SessionConfig, tokens ports.TokenRepo, logger logger.Logger) *SessionManager {
	return &SessionManager{
		cfg:    cfg,
		tokens: tokens,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// AccessTTL is the lifetime of issued access tokens; the HTTP layer uses it
// as the cookie max-age.
func (m *SessionManager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

func (m *SessionManager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

// Issue mints a token pair for id and makes the refresh token the user's
// only valid one.
func (m *SessionManager) Issue(ctx context.Context, id Identity) (TokenPair, error) {
	now := m.now()

	access, accessExp, err := m.signAccess(id, now)
	if err != nil {
		return TokenPair{}, apperr.Internal(fmt.Errorf("sign access token: %w", err))
	}

	refreshClaims := utils.NewClaims(id.UserID, id.Name, id.Email, id.Role, now, m.cfg.RefreshTTL, uuid.NewString())
	refresh, err := utils.SignToken(m.cfg.RefreshSecret, refreshClaims)
	if err != nil {
		return TokenPair{}, apperr.Internal(fmt.Errorf("sign refresh token: %w", err))
	}
	refreshExp := refreshClaims.ExpiresAt.Time

	if err := m.tokens.Replace(ctx, id.UserID, utils.HashRefreshRaw(refresh), refreshExp); err != nil {
		return TokenPair{}, apperr.Internal(fmt.Errorf("store refresh token: %w", err))
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ValidateAccess checks signature and expiry of an access token.  It never
// returns an error; any failure reads as "not authenticated".
func (m *SessionManager) ValidateAccess(raw string) (*Claims, bool) {
	if raw == "" {
		return nil, false
	}
	claims, err := utils.ParseToken(m.cfg.AccessSecret, raw, m.now)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// Refresh exchanges a refresh token for a new access token.  The refresh
// token itself is not rotated.  Failures:
//
//	empty token                  -> Unauthorized (ErrRefreshMissing)
//	no stored record             -> Forbidden    (ErrRefreshNotValid)
//	stored but past its exp      -> Forbidden    (ErrRefreshExpired)
//	stored but fails to verify   -> Forbidden    (ErrRefreshInvalid)
func (m *SessionManager) Refresh(ctx context.Context, raw string) (string, *Claims, error) {
	if raw == "" {
		return "", nil, apperr.Wrap(apperr.KindUnauthorized, ErrRefreshMissing)
	}

	stored, err := m.tokens.FindByHash(ctx, utils.HashRefreshRaw(raw))
	if errors.Is(err, repository.ErrTokenNotFound) {
		return "", nil, apperr.Wrap(apperr.KindForbidden, ErrRefreshNotValid)
	}
	if err != nil {
		return "", nil, apperr.Internal(fmt.Errorf("find refresh token: %w", err))
	}

	claims, err := utils.ParseToken(m.cfg.RefreshSecret, raw, m.now)
	if errors.Is(err, utils.ErrTokenExpired) {
		return "", nil, apperr.Wrap(apperr.KindForbidden, ErrRefreshExpired)
	}
	if err != nil || claims.UserID != stored.UserID {
		return "", nil, apperr.Wrap(apperr.KindForbidden, ErrRefreshInvalid)
	}

	id := Identity{UserID: claims.UserID, Name: claims.Name, Email: claims.Email, Role: claims.Role}
	access, _, err := m.signAccess(id, m.now())
	if err != nil {
		return "", nil, apperr.Internal(fmt.Errorf("sign access token: %w", err))
	}
	fresh, err := utils.ParseToken(m.cfg.AccessSecret, access, m.now)
	if err != nil {
		return "", nil, apperr.Internal(fmt.Errorf("decode refreshed token: %w", err))
	}

	m.logger.Debug("access token refreshed", logger.Any("user_id", id.UserID))
	return access, fresh, nil
}

// Revoke drops the user's refresh token.
func (m *SessionManager) Revoke(ctx context.Context, userID uint64) error {
	if err := m.tokens.DeleteByUser(ctx, userID); err != nil {
		return apperr.Internal(fmt.Errorf("revoke refresh token: %w", err))
	}
	return nil
}

func (m *SessionManager) signAccess(id Identity, now time.Time) (string, time.Time, error) {
	claims := utils.NewClaims(id.UserID, id.Name, id.Email, id.Role, now, m.cfg.AccessTTL, uuid.NewString())
	tok, err := utils.SignToken(m.cfg.AccessSecret, claims)
	return tok, claims.ExpiresAt.Time, err
}
