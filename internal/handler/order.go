package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/service"
)

// Orders is the order lifecycle surface.  *service.OrderService implements
// it.
type Orders interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID uint64, next model.OrderStatus) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID uint64, reason string) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID uint64, status model.PaymentStatus) (*model.Order, error)
	GetOrder(ctx context.Context, orderID uint64) (*model.Order, error)
	ListOrders(ctx context.Context, f model.OrderFilter) (*model.OrderPage, error)
	ListByCustomerPhone(ctx context.Context, phone string, page, limit int) (*model.OrderPage, error)
	ListToday(ctx context.Context, f model.OrderFilter) (*model.OrderPage, error)
}

// OrderHandler serves the storefront and the admin order board.
type OrderHandler struct {
	Orders Orders
}

func NewOrderHandler(o Orders) *OrderHandler {
	return &OrderHandler{Orders: o}
}

type statusReq struct {
	Status string `json:"status"`
}
type paymentReq struct {
	PaymentStatus string `json:"payment_status"`
}
type cancelReq struct {
	Reason string `json:"reason"`
}

// Create places an order from the public storefront.
func (h *OrderHandler) Create(c echo.Context) error {
	var in service.CreateOrderInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	in.Type = model.OrderType(strings.ToUpper(strings.TrimSpace(string(in.Type))))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	o, err := h.Orders.CreateOrder(ctx, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// Track lists a customer's orders by phone number.
func (h *OrderHandler) Track(c echo.Context) error {
	phone := strings.TrimSpace(c.QueryParam("phone"))
	if phone == "" {
		return badRequest(c, "phone is required")
	}
	page, err := queryInt(c, "page")
	if err != nil {
		return badRequest(c, err.Error())
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.Orders.ListByCustomerPhone(c.Request().Context(), phone, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// List is the admin listing with filters.
func (h *OrderHandler) List(c echo.Context) error {
	f, err := orderFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.Orders.ListOrders(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Today lists orders placed since local midnight.
func (h *OrderHandler) Today(c echo.Context) error {
	f, err := orderFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.Orders.ListToday(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Get returns one order with its lines.
func (h *OrderHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	o, err := h.Orders.GetOrder(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// UpdateStatus moves an order along the kitchen lifecycle.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	o, err := h.Orders.UpdateStatus(ctx, id, model.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status))))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// UpdatePayment sets the payment status.
func (h *OrderHandler) UpdatePayment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	o, err := h.Orders.UpdatePaymentStatus(ctx, id, model.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.PaymentStatus))))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Cancel cancels a non-terminal order.  The body is optional.
func (h *OrderHandler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req cancelReq
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	o, err := h.Orders.CancelOrder(ctx, id, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
