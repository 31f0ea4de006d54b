package middleware // middleware provides shared request processing for handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/logger"
	"github.com/iliyamo/cafe-ordering/internal/utils"
)

// AccessValidator checks a raw access token.  *service.TokenIssuer
// implements it.
type AccessValidator interface {
	ValidateAccess(raw string) (*utils.AccessClaims, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller's id, role and email in the echo context under
// KeyUserID, KeyRole and KeyEmail.  Validation is stateless: no storage is
// consulted, so a role change only takes effect once the token expires.
func JWTAuth(v AccessValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := v.ValidateAccess(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			uid, err := claims.UserID()
			if err != nil || uid == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			c.Set(KeyUserID, uid)
			c.Set(KeyRole, claims.Role)
			c.Set(KeyEmail, claims.Email)

			// Tag the request logger with the caller.
			req := c.Request()
			l := logger.From(req.Context()).With(slog.Uint64("user_id", uid))
			c.SetRequest(req.WithContext(logger.Into(req.Context(), l)))
			return next(c)
		}
	}
}
