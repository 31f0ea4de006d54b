package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

// queryTime accepts RFC 3339 or a bare YYYY-MM-DD date (midnight UTC).
func queryTime(c echo.Context, name string) (*time.Time, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New(name + " must be RFC 3339 or YYYY-MM-DD")
}

// orderFilter builds a listing filter from the query string.  Values are
// upper-cased; the service rejects unknown ones.
func orderFilter(c echo.Context) (model.OrderFilter, error) {
	var f model.OrderFilter
	var err error
	f.Status = model.OrderStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
	f.Type = model.OrderType(strings.ToUpper(strings.TrimSpace(c.QueryParam("type"))))
	f.PaymentStatus = model.PaymentStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("payment_status"))))
	f.CustomerPhone = strings.TrimSpace(c.QueryParam("phone"))
	if f.From, err = queryTime(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return f, err
	}
	if f.Page, err = queryInt(c, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return f, err
	}
	return f, nil
}
