package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// cachedResponse is what ResponseCache stores per key.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyRecorder tees the response body so it can be cached after the
// handler returns.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.over {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.over = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// ResponseCache serves repeated reads of public catalog endpoints from
// Redis.  Only 200 responses under the size limit are stored.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client, log logger.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(hit.Status, hit.ContentType, hit.Body)
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.over {
				return nil
			}

			payload, err := json.Marshal(cachedResponse{
				Status:      rec.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        rec.buf.Bytes(),
			})
			if err != nil {
				return nil
			}
			if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				log.Warn("response cache write failed", logger.String("key", key), logger.String("error", err.Error()))
			}
			return nil
		}
	}
}

// InvalidateCache drops every cached response stored for the given route
// paths once the wrapped write handler has succeeded.
func InvalidateCache(cfg config.CacheConfig, rdb *redis.Client, log logger.Logger, paths ...string) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return invalidateWith(func(ctx context.Context, pattern string) (int, error) {
		return purgeKeys(ctx, rdb, pattern)
	}, cfg.Prefix, paths, log)
}

func invalidateWith(purge func(ctx context.Context, pattern string) (int, error), prefix string, paths []string, log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if status := c.Response().Status; status < 200 || status >= 300 {
				return nil
			}
			ctx := context.WithoutCancel(c.Request().Context())
			for _, p := range paths {
				pattern := routePrefix(prefix, p) + "*"
				n, err := purge(ctx, pattern)
				if err != nil {
					log.Warn("response cache invalidation failed", logger.String("pattern", pattern), logger.String("error", err.Error()))
					continue
				}
				log.Debug("response cache invalidated", logger.String("pattern", pattern), logger.Int("keys", n))
			}
			return nil
		}
	}
}

func purgeKeys(ctx context.Context, rdb *redis.Client, pattern string) (int, error) {
	var keys []string
	iter := rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// routePrefix is the part of a cache key shared by every entry of a route,
// escaped for use in a SCAN pattern.
func routePrefix(prefix, path string) string {
	return globEscaper.Replace(prefix + ":" + path + ":")
}

// cacheKey keeps the route path readable so a route's entries can be
// purged together, and hashes the rest so arbitrary query strings stay
// within a bounded key length.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{c.Path()}
	case "method_route":
		parts = []string{r.Method, c.Path()}
	case "method_route_query":
		parts = []string{r.Method, c.Path(), r.URL.RawQuery}
	default:
		parts = []string{c.Path(), r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return cfg.Prefix + ":" + c.Path() + ":" + hex.EncodeToString(sum[:])
}
