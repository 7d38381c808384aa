package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/movies/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.1.2.3")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/movies/bookings")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user"}
	assert.Equal(t, "rl:ip:10.1.2.3:user:anon", rateKey(cfg, c))

	c.Set(claimsKey, &service.Claims{UserID: 42})
	assert.Equal(t, "rl:ip:10.1.2.3:user:42", rateKey(cfg, c))

	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.1.2.3:user:42:route:POST /movies/bookings", rateKey(cfg, c))
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	mw := RateLimit(config.RateLimitConfig{Enabled: true}, nil, newTestLogger(t))
	require.NoError(t, mw(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestCacheKey(t *testing.T) {
	e := echo.New()
	newCtx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/movies/list-movie")
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	a := cacheKey(cfg, newCtx("/movies/list-movie?page=1"))
	b := cacheKey(cfg, newCtx("/movies/list-movie?page=2"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "cache:/movies/list-movie:"), a)

	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKey(cfg, newCtx("/movies/list-movie?page=1")), cacheKey(cfg, newCtx("/movies/list-movie?page=2")))
}

func TestInvalidateCache(t *testing.T) {
	e := echo.New()
	run := func(status int, handlerErr error) []string {
		var patterns []string
		purge := func(_ context.Context, pattern string) (int, error) {
			patterns = append(patterns, pattern)
			return 1, nil
		}
		mw := invalidateWith(purge, "cache", []string{"/movies/list-movie"}, newTestLogger(t))
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/movies/add-movie", nil), httptest.NewRecorder())
		_ = mw(func(c echo.Context) error {
			if handlerErr != nil {
				return handlerErr
			}
			return c.NoContent(status)
		})(c)
		return patterns
	}

	assert.Equal(t, []string{"cache:/movies/list-movie:*"}, run(http.StatusCreated, nil))
	assert.Empty(t, run(http.StatusBadRequest, nil))
	assert.Empty(t, run(0, apperr.Conflict("Movie already exists")))
}

func TestInvalidateCache_PatternCoversCachedKeys(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/movies/list-movie?page=3", nil), httptest.NewRecorder())
	c.SetPath("/movies/list-movie")
	cfg := config.CacheConfig{Prefix: "cache"}

	key := cacheKey(cfg, c)
	pattern := routePrefix(cfg.Prefix, "/movies/list-movie") + "*"
	ok, err := path.Match(pattern, key)
	require.NoError(t, err)
	assert.True(t, ok, "%s should match %s", key, pattern)

	assert.Equal(t, `cache:/a\\\[b\]:`, routePrefix("cache", `/a\[b]`))
}

func TestBodyRecorder_DropsOversizedBodies(t *testing.T) {
	rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 4}
	_, _ = rec.Write([]byte("ab"))
	assert.False(t, rec.over)
	_, _ = rec.Write([]byte("cdef"))
	assert.True(t, rec.over)
	assert.Zero(t, rec.buf.Len())
}
