package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/policy"
)

// All guards below fail closed: no claims means 401, never a pass.

// RequireAuth only demands an authenticated caller.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := ClaimsFrom(c); !ok {
				return apperr.Unauthorized("Authentication required")
			}
			return next(c)
		}
	}
}

// RequirePermission lets the request through when the caller's role holds
// perm in table.
func RequirePermission(table *policy.Table, perm policy.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return apperr.Unauthorized("Authentication required")
			}
			if !table.Allows(claims.Role, perm) {
				return accessDenied(claims.Role)
			}
			return next(c)
		}
	}
}

// RequireRole enforces that the caller has one of roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return apperr.Unauthorized("Authentication required")
			}
			if !allowed[claims.Role] {
				return accessDenied(claims.Role)
			}
			return next(c)
		}
	}
}

func accessDenied(role model.Role) error {
	if role == "" {
		role = "unknown"
	}
	return apperr.Forbidden(fmt.Sprintf("Access Denied For %s Role", role))
}
