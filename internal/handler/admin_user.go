package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type createUserReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
type roleReq struct {
	Role string `json:"role"`
}
type activeReq struct {
	Active *bool `json:"active"`
}

// CreateUser lets an admin create an account of any role.
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.Auth.CreateUser(ctx, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// SetRole changes a user's role.
func (h *AuthHandler) SetRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.Auth.SetRole(ctx, id, req.Role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// SetActive activates or deactivates a user.
func (h *AuthHandler) SetActive(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req activeReq
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return badRequest(c, "active is required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.Auth.SetActive(ctx, id, *req.Active)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
