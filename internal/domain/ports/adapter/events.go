package adapter

import (
	"context"
	"time"
)

const (
	EventOrderPaid             = "checkout.order-paid"
	EventSubscriptionActivated = "checkout.subscription-activated"
)

// CheckoutEvent is published after a purchase has been committed.
type CheckoutEvent struct {
	Type           string    `json:"type"`
	BuyOrder       string    `json:"buy_order"`
	UserID         int64     `json:"user_id"`
	Amount         int64     `json:"amount"`
	OrderID        string    `json:"order_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventPublisher publishes checkout events. Publish must not block on the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev CheckoutEvent) error
}
