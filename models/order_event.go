package models

import "time"

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
)

// OrderEvent is published after every committed order transition.
type OrderEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	EventVersion  int       `json:"event_version"`
	OccurredAt    time.Time `json:"occurred_at"`
	Producer      string    `json:"producer"`
	OrderID       string    `json:"order_id"`
	OrderCode     string    `json:"order_code"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	Total         int64     `json:"total"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	PaymentRef    string    `json:"payment_ref,omitempty"`
}
