package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/handler"
)

// RegisterStorefront registers the public ordering endpoints.  Guests
// place orders and track them by phone number without an account.
func RegisterStorefront(e *echo.Echo, o *handler.OrderHandler) {
	g := e.Group("/v1/orders")
	g.POST("", o.Create)
	g.GET("/track", o.Track)
}
