package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

const (
	claimsKey  = "claims"
	failureKey = "auth_failure"
)

// Sessions is the part of the session manager the gate needs.
type Sessions interface {
	ValidateAccess(raw string) (*service.Claims, bool)
	Refresh(ctx context.Context, raw string) (string, *service.Claims, error)
	AccessTTL() time.Duration
}

type AuthConfig struct {
	Policy config.AuthPolicy
	Cookie CookieConfig
}

// Authenticate resolves the caller from, in order, the Bearer header, the
// access cookie and finally the refresh cookie.  A successful refresh sets a
// new access cookie.  When nothing authenticates, stale cookies are cleared
// and the request either continues anonymously (lenient) or is rejected
// with 401 (strict).  A request an outer gate has already handled is not
// resolved twice, so a strict gate can be stacked on a route group behind
// the global lenient one.
func Authenticate(sessions Sessions, cfg AuthConfig, log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := ClaimsFrom(c); ok {
				return next(c)
			}
			// an outer gate already tried and failed; only the policy differs
			if failure, ok := c.Get(failureKey).(string); ok {
				return decide(c, next, cfg.Policy, failure)
			}

			raw := bearerToken(c)
			if raw == "" {
				raw = cookieValue(c, AccessCookie)
			}
			if claims, ok := sessions.ValidateAccess(raw); ok {
				c.Set(claimsKey, claims)
				return next(c)
			}

			ctx := c.Request().Context()
			refresh := cookieValue(c, RefreshCookie)
			failure := "Authentication required"
			if refresh != "" {
				access, claims, err := sessions.Refresh(ctx, refresh)
				switch {
				case err == nil:
					SetCookie(c, cfg.Cookie, AccessCookie, access, sessions.AccessTTL())
					c.Set(claimsKey, claims)
					return next(c)
				case apperr.KindOf(err) == apperr.KindInternal:
					// the token may still be good; keep the cookie and let
					// the policy decide
					log.LogAttrs(ctx, logger.ErrorLevel, "refresh unavailable",
						logger.String("error", err.Error()),
						logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
					)
				default:
					log.LogAttrs(ctx, logger.DebugLevel, "refresh failed",
						logger.String("reason", apperr.MessageOf(err)),
						logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
					)
					ClearCookie(c, cfg.Cookie, RefreshCookie)
					failure = "Authentication failed. Please sign in again."
				}
			}
			if cookieValue(c, AccessCookie) != "" {
				ClearCookie(c, cfg.Cookie, AccessCookie)
			}

			c.Set(failureKey, failure)
			return decide(c, next, cfg.Policy, failure)
		}
	}
}

func decide(c echo.Context, next echo.HandlerFunc, p config.AuthPolicy, failure string) error {
	if p == config.PolicyStrict {
		return apperr.Unauthorized(failure)
	}
	return next(c)
}

// ClaimsFrom returns the claims Authenticate stored, if any.
func ClaimsFrom(c echo.Context) (*service.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*service.Claims)
	return claims, ok && claims != nil
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
