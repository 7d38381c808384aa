package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// tokenBucket refills in whole intervals and stores its state in a hash so
// every instance of the API shares one bucket per key.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = capacity
  last = now_ms
end

if interval_ms > 0 and refill > 0 then
  local steps = math.floor(math.max(0, now_ms - last) / interval_ms)
  if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    last = last + steps * interval_ms
  end
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_ms', last)
redis.call('EXPIRE', key, ttl)
return { allowed, tokens, retry_ms }
`)

type bucketResult struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// RateLimit throttles requests with a Redis token bucket.  Redis failures
// let the request through: availability of the booking API wins over
// throttling.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, log logger.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			res, err := takeToken(c.Request().Context(), rdb, cfg, key, time.Now())
			if err != nil {
				log.Warn("rate limiter unavailable", logger.String("key", key), logger.String("error", err.Error()))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !res.allowed {
				secs := int(math.Ceil(res.retry.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				return apperr.New(apperr.KindTooManyRequests, "Too many requests. Please slow down.")
			}
			return next(c)
		}
	}
}

func takeToken(ctx context.Context, rdb redis.Scripter, cfg config.RateLimitConfig, key string, now time.Time) (bucketResult, error) {
	vals, err := tokenBucket.Run(ctx, rdb, []string{key},
		now.UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return bucketResult{}, err
	}
	if len(vals) != 3 {
		return bucketResult{}, fmt.Errorf("unexpected limiter reply %v", vals)
	}
	return bucketResult{
		allowed:   vals[0] == 1,
		remaining: vals[1],
		retry:     time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// rateKey builds the bucket key.  The strategy names its components joined
// by underscores, e.g. "ip_user" or "user_route"; unknown strategies use all
// three.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	switch strategy {
	case "ip", "user", "route", "ip_user", "ip_route", "user_route", "ip_user_route":
	default:
		strategy = "ip_user_route"
	}

	parts := []string{cfg.Prefix}
	for _, component := range strings.Split(strategy, "_") {
		switch component {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			parts = append(parts, "ip", ip)
		case "user":
			user := "anon"
			if claims, ok := ClaimsFrom(c); ok {
				user = strconv.FormatUint(claims.UserID, 10)
			}
			parts = append(parts, "user", user)
		case "route":
			parts = append(parts, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(parts, ":")
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
