package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

var testSessionCfg = SessionConfig{
	AccessSecret:  "access-secret",
	RefreshSecret: "refresh-secret",
	AccessTTL:     5 * time.Minute,
	RefreshTTL:    10 * time.Minute,
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSessions(t *testing.T) (*SessionManager, *memTokens, *clock) {
	t.Helper()
	tokens := newMemTokens()
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewSessionManager(testSessionCfg, tokens, newTestLogger(t)).WithClock(clk.now)
	return m, tokens, clk
}

var ada = Identity{UserID: 7, Name: "Ada", Email: "ada@example.com", Role: model.RoleUser}

func TestSession_IssueThenValidateAccess(t *testing.T) {
	m, tokens, clk := newTestSessions(t)

	pair, err := m.Issue(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, clk.t.Add(5*time.Minute), pair.AccessExpiresAt)
	assert.Equal(t, clk.t.Add(10*time.Minute), pair.RefreshExpiresAt)
	assert.Equal(t, 1, tokens.count())

	claims, ok := m.ValidateAccess(pair.AccessToken)
	require.True(t, ok)
	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, model.RoleUser, claims.Role)
}

func TestSession_ValidateAccessFailures(t *testing.T) {
	m, _, clk := newTestSessions(t)
	pair, err := m.Issue(context.Background(), ada)
	require.NoError(t, err)

	_, ok := m.ValidateAccess("")
	assert.False(t, ok)
	_, ok = m.ValidateAccess("not-a-jwt")
	assert.False(t, ok)

	// refresh tokens are signed with a different secret
	_, ok = m.ValidateAccess(pair.RefreshToken)
	assert.False(t, ok)

	clk.advance(6 * time.Minute)
	_, ok = m.ValidateAccess(pair.AccessToken)
	assert.False(t, ok)
}

func TestSession_RefreshMintsAccessToken(t *testing.T) {
	m, _, clk := newTestSessions(t)
	pair, err := m.Issue(context.Background(), ada)
	require.NoError(t, err)

	clk.advance(6 * time.Minute) // access expired, refresh still live
	_, ok := m.ValidateAccess(pair.AccessToken)
	require.False(t, ok)

	access, claims, err := m.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, model.RoleUser, claims.Role)

	fresh, ok := m.ValidateAccess(access)
	require.True(t, ok)
	assert.Equal(t, "Ada", fresh.Name)
}

func TestSession_SecondLoginInvalidatesFirstRefresh(t *testing.T) {
	m, tokens, _ := newTestSessions(t)

	first, err := m.Issue(context.Background(), ada)
	require.NoError(t, err)
	second, err := m.Issue(context.Background(), ada)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, tokens.count())

	_, _, err = m.Refresh(context.Background(), first.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.ErrorIs(t, err, ErrRefreshNotValid)
	assert.Equal(t, "refresh token not valid", apperr.MessageOf(err))

	_, _, err = m.Refresh(context.Background(), second.RefreshToken)
	assert.NoError(t, err)
}

func TestSession_RefreshReasons(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		m, _, _ := newTestSessions(t)
		_, _, err := m.Refresh(ctx, "")
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
		assert.ErrorIs(t, err, ErrRefreshMissing)
	})

	t.Run("expired", func(t *testing.T) {
		m, _, clk := newTestSessions(t)
		pair, err := m.Issue(ctx, ada)
		require.NoError(t, err)

		clk.advance(11 * time.Minute)
		_, _, err = m.Refresh(ctx, pair.RefreshToken)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		assert.ErrorIs(t, err, ErrRefreshExpired)
		assert.NotErrorIs(t, err, ErrRefreshInvalid)
	})

	t.Run("invalid signature", func(t *testing.T) {
		m, tokens, clk := newTestSessions(t)
		claims := utils.NewClaims(7, "Ada", "ada@example.com", model.RoleAdmin, clk.t, time.Hour, "forged")
		forged, err := utils.SignToken("someone-elses-secret", claims)
		require.NoError(t, err)
		require.NoError(t, tokens.Replace(ctx, 7, utils.HashRefreshRaw(forged), clk.t.Add(time.Hour)))

		_, _, err = m.Refresh(ctx, forged)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		assert.ErrorIs(t, err, ErrRefreshInvalid)
		assert.NotErrorIs(t, err, ErrRefreshExpired)
	})

	t.Run("unknown token", func(t *testing.T) {
		m, _, _ := newTestSessions(t)
		_, _, err := m.Refresh(ctx, "never-issued")
		assert.ErrorIs(t, err, ErrRefreshNotValid)
	})
}

func TestSession_RevokeEndsRefresh(t *testing.T) {
	m, tokens, _ := newTestSessions(t)
	pair, err := m.Issue(context.Background(), ada)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(context.Background(), ada.UserID))
	assert.Equal(t, 0, tokens.count())

	_, _, err = m.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshNotValid)
}

func TestSession_StoreFailuresAreInternal(t *testing.T) {
	repo := &mockTokenRepo{}
	m := NewSessionManager(testSessionCfg, repo, newTestLogger(t))
	boom := errors.New("connection reset")

	repo.On("Replace", mock.Anything, uint64(7), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(boom)
	repo.On("FindByHash", mock.Anything, mock.AnythingOfType("string")).Return(model.RefreshToken{}, boom)

	_, err := m.Issue(context.Background(), ada)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.ErrorIs(t, err, boom)

	_, _, err = m.Refresh(context.Background(), "anything")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "Something went wrong", apperr.MessageOf(err))
	repo.AssertExpectations(t)
}
