package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/logger"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/service"
)

// statusFor maps a service error onto an HTTP status and a stable public
// message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrInfrastructure):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError renders err as {"error": ..., "detail": ...}.  Details are
// only included for errors raised by the service's own checks; anything
// carrying a storage error is reported by status alone and logged.
func writeError(c echo.Context, err error) error {
	status, msg := statusFor(err)
	body := echo.Map{"error": msg}
	if d := detail(err, status); d != "" {
		body["detail"] = d
	}
	if status >= http.StatusInternalServerError {
		logger.From(c.Request().Context()).Error("request_failed",
			slog.String("path", c.Path()),
			slog.Any("err", err))
	}
	return c.JSON(status, body)
}

func detail(err error, status int) string {
	var sentinel error
	switch status {
	case http.StatusBadRequest:
		sentinel = service.ErrValidation
	case http.StatusNotFound:
		sentinel = service.ErrNotFound
	case http.StatusConflict:
		sentinel = service.ErrConflict
	default:
		return ""
	}
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return "email already registered"
	case errors.Is(err, repository.ErrConflict):
		return "modified concurrently, reload and retry"
	case errors.Is(err, repository.ErrNotFound):
		return ""
	}
	_, rest, ok := strings.Cut(err.Error(), sentinel.Error()+": ")
	if !ok {
		return ""
	}
	return rest
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "detail": msg})
}
