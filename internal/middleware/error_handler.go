package middleware

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/care-booking-service/internal/service"
	"github.com/Eursukkul/care-booking-service/pkg/logger"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as {"message": ...}. Service errors are
// mapped by kind; store failures are logged and their detail is not leaked.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := StatusFor(err)
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]string{"message": msg})
	}
}

// StatusFor maps an error to an HTTP status and client-facing message.
func StatusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		return he.Code, http.StatusText(he.Code)
	}

	var se *service.Error
	if errors.As(err, &se) {
		switch {
		case errors.Is(se, service.ErrValidation):
			return http.StatusBadRequest, se.Msg
		case errors.Is(se, service.ErrForbidden):
			return http.StatusForbidden, se.Msg
		case errors.Is(se, service.ErrNotFound):
			return http.StatusNotFound, se.Msg
		case errors.Is(se, service.ErrConflict):
			return http.StatusConflict, se.Msg
		case errors.Is(se, service.ErrDatabase):
			return http.StatusInternalServerError, se.Msg
		}
	}
	return http.StatusInternalServerError, "internal server error"
}
