// Package queue carries order events over RabbitMQ: the payload, the
// publisher used by the order service and the background consumer that
// writes them to the order audit log.
package queue

import (
	"time"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// Event names used as OrderEvent.Event.
const (
	EventOrderCreated        = "order.created"
	EventOrderStatusChanged  = "order.status_changed"
	EventOrderPaymentChanged = "order.payment_changed"
	EventOrderCancelled      = "order.cancelled"
)

// OrderEvent is published after an order write commits.  It carries enough
// for downstream consumers to log or notify without querying the primary
// database.
type OrderEvent struct {
	Event          string              `json:"event"`
	OrderID        uint64              `json:"order_id"`
	OrderType      model.OrderType     `json:"order_type"`
	Status         model.OrderStatus   `json:"status"`
	PreviousStatus model.OrderStatus   `json:"previous_status,omitempty"`
	PaymentStatus  model.PaymentStatus `json:"payment_status"`
	CustomerPhone  string              `json:"customer_phone"`
	TotalAmount    int64               `json:"total_amount"`
	Items          int                 `json:"items"`
	CancelReason   string              `json:"cancel_reason,omitempty"`
	OccurredAt     string              `json:"occurred_at"`
}

// NewOrderEvent builds the event for o.  prev is the status before the
// write; pass "" when there was none.
func NewOrderEvent(event string, o *model.Order, prev model.OrderStatus, at time.Time) OrderEvent {
	ev := OrderEvent{
		Event:          event,
		OrderID:        o.ID,
		OrderType:      o.Type,
		Status:         o.Status,
		PreviousStatus: prev,
		PaymentStatus:  o.PaymentStatus,
		CustomerPhone:  o.CustomerPhone,
		TotalAmount:    o.TotalAmount,
		OccurredAt:     at.UTC().Format(time.RFC3339),
	}
	for _, l := range o.Lines {
		ev.Items += int(l.Quantity)
	}
	if o.CancelReason != nil {
		ev.CancelReason = *o.CancelReason
	}
	return ev
}
