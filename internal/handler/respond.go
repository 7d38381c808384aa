package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
)

// requestTimeout bounds every service call made from a handler.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// ok writes the success envelope.  fields are merged next to success.
func ok(c echo.Context, status int, message string, fields echo.Map) error {
	body := echo.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(status, body)
}

// ErrorHandler replaces echo's default so that every failure, including
// echo's own routing and binding errors, renders as {success:false, message}.
func ErrorHandler(log logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := http.StatusInternalServerError, "Something went wrong"
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			status = he.Code
			message = http.StatusText(he.Code)
			if m, isStr := he.Message.(string); isStr && m != "" {
				message = m
			}
		default:
			kind := apperr.KindOf(err)
			status, message = kind.Status(), apperr.MessageOf(err)
		}

		if status >= http.StatusInternalServerError {
			log.LogAttrs(c.Request().Context(), logger.ErrorLevel, "request failed",
				logger.String("error", err.Error()),
				logger.String("path", c.Path()),
				logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, echo.Map{"success": false, "message": message})
		}
		if werr != nil {
			log.Error("write error response", logger.String("error", werr.Error()))
		}
	}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest("Invalid " + name)
	}
	return id, nil
}

// bind decodes and validates the request body.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		return err
	}
	return nil
}
