package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/handler"
	"github.com/iliyamo/cafe-ordering/internal/middleware"
	"github.com/iliyamo/cafe-ordering/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
// All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, o *handler.OrderHandler, tokens middleware.AccessValidator) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(tokens),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Orders ----
	g.GET("/orders", o.List)
	g.GET("/orders/today", o.Today)
	g.GET("/orders/:id", o.Get)
	g.PATCH("/orders/:id/status", o.UpdateStatus)
	g.PATCH("/orders/:id/payment", o.UpdatePayment)
	g.POST("/orders/:id/cancel", o.Cancel)

	// ---- Users ----
	g.POST("/users", a.CreateUser)
	g.PATCH("/users/:id/role", a.SetRole)
	g.PATCH("/users/:id/active", a.SetActive)
}
