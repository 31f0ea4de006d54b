package model

import "time"

// OrderStatus is the kitchen-facing lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// transitions lists the legal successors of every status.  Terminal
// statuses map to an empty set.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// PaymentStatus is independent of OrderStatus and has no transition guard.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// OrderType describes how the order is fulfilled.
type OrderType string

const (
	TypeDineIn   OrderType = "DINE_IN"
	TypeTakeaway OrderType = "TAKEAWAY"
	TypeDelivery OrderType = "DELIVERY"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case TypeDineIn, TypeTakeaway, TypeDelivery:
		return true
	}
	return false
}

// Order records a customer's order.  Amounts are in the minor currency
// unit (paise).  TotalAmount is computed once at creation from the
// snapshotted line prices and never recalculated.
//
// Fields:
//  ID            – primary key identifier.
//  CustomerName  – name given at checkout.
//  CustomerPhone – phone used to track the order.
//  CustomerEmail – optional contact email.
//  Type          – DINE_IN, TAKEAWAY or DELIVERY.
//  Status        – kitchen lifecycle state.
//  PaymentStatus – payment state.
//  TotalAmount   – Σ(unit price × quantity) at creation.
//  TableNumber   – table for dine-in orders.
//  CancelReason  – reason supplied on cancellation.
//  Note          – free-form order note.
//  Version       – incremented on every status or payment write.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Order struct {
	ID            uint64        `json:"id"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	CustomerEmail *string       `json:"customer_email,omitempty"`
	Type          OrderType     `json:"order_type"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   int64         `json:"total_amount"`
	TableNumber   *uint32       `json:"table_number,omitempty"`
	CancelReason  *string       `json:"cancel_reason,omitempty"`
	Note          *string       `json:"note,omitempty"`
	Version       uint32        `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Lines         []OrderLine   `json:"lines"`
}

// OrderLine links an order to a menu item.  UnitPrice and ItemName are
// captured when the order is created.
type OrderLine struct {
	ID         uint64  `json:"id"`
	OrderID    uint64  `json:"order_id"`
	MenuItemID uint64  `json:"menu_item_id"`
	ItemName   string  `json:"item_name"`
	Quantity   uint32  `json:"quantity"`
	UnitPrice  int64   `json:"unit_price"`
	Note       *string `json:"note,omitempty"`
}

// Subtotal returns UnitPrice × Quantity.
func (l OrderLine) Subtotal() int64 { return l.UnitPrice * int64(l.Quantity) }

// SumLines returns the order total for the given lines.
func SumLines(lines []OrderLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// CatalogItem is the read-only view of a menu item returned by the catalog
// lookup.
type CatalogItem struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Available bool   `json:"available"`
}

// OrderFilter narrows order listings.  Zero values mean "no filter".
type OrderFilter struct {
	Status        OrderStatus
	Type          OrderType
	PaymentStatus PaymentStatus
	CustomerPhone string
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

// Normalize clamps paging to sane bounds.
func (f OrderFilter) Normalize() OrderFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

// Offset returns the row offset for the current page.
func (f OrderFilter) Offset() int { return (f.Page - 1) * f.Limit }

// OrderPage is one page of an order listing.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}
