package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/logger"
)

// RequestLogger injects a request-scoped logger carrying the request id
// into the request context and logs one line per request once the handler
// returns.  Mount it after echo's RequestID middleware.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = req.Header.Get(echo.HeaderXRequestID)
			}

			l := base.With(slog.String("request_id", rid))
			c.SetRequest(req.WithContext(logger.Into(req.Context(), l)))

			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{
				slog.String("method", req.Method),
				slog.String("path", c.Path()),
				slog.Int("status", status),
				slog.Duration("latency", time.Since(start)),
			}
			// Pick up the user id JWTAuth may have added.
			if uid, ok := UserID(c); ok {
				attrs = append(attrs, slog.Uint64("user_id", uid))
			}
			switch {
			case status >= 500:
				l.Error("http_request", attrs...)
			case status >= 400:
				l.Warn("http_request", attrs...)
			default:
				l.Info("http_request", attrs...)
			}
			return nil
		}
	}
}
