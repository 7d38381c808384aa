package middleware

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
)

// Recovery turns a panic in a handler into a logged 500.
func Recovery(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.LogAttrs(c.Request().Context(), logger.ErrorLevel, "panic recovered",
						logger.Any("error", r),
						logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
						logger.String("stack", string(debug.Stack())),
					)
					err = apperr.Internal(fmt.Errorf("panic: %v", r))
				}
			}()
			return next(c)
		}
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is final
				c.Error(err)
			}

			req := c.Request()
			userID := ""
			if claims, ok := ClaimsFrom(c); ok {
				userID = strconv.FormatUint(claims.UserID, 10)
			}
			level := logger.InfoLevel
			switch {
			case c.Response().Status >= 500:
				level = logger.ErrorLevel
			case c.Response().Status >= 400:
				level = logger.WarnLevel
			}
			log.LogAttrs(req.Context(), level, "http request",
				logger.String("method", req.Method),
				logger.String("path", c.Path()),
				logger.String("uri", req.RequestURI),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency", time.Since(start)),
				logger.String("ip", c.RealIP()),
				logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				logger.String("user_id", userID),
			)
			return nil
		}
	}
}
