package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/handler"
	"github.com/iliyamo/cafe-ordering/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication:
// liveness, readiness and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the authentication routes.  Register, login and
// refresh live under /v1/auth without a session; everything else needs a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens middleware.AccessValidator) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)

	authed := middleware.JWTAuth(tokens)
	g.POST("/logout", a.Logout, authed)
	g.POST("/change-password", a.ChangePassword, authed)

	me := e.Group("/v1/me", authed)
	me.GET("", a.Me)
	me.PATCH("", a.UpdateMe)
}
