package model

import (
	"time"

	"webpay-checkout/internal/domain"
)

// Subscription is created once per committed plan checkout. At most one
// subscription per user is active.
type Subscription struct {
	ID        string
	UserID    int64
	PlanID    int64
	BuyOrder  string
	Token     string
	StartAt   time.Time
	ExpiresAt time.Time
	Active    bool
	CreatedAt time.Time
}

// NewSubscription starts an active subscription at now for the plan's duration.
func NewSubscription(id string, userID int64, plan *Plan, buyOrder string, now time.Time) (*Subscription, error) {
	if id == "" || userID <= 0 || plan == nil || buyOrder == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		UserID:    userID,
		PlanID:    plan.ID,
		BuyOrder:  buyOrder,
		StartAt:   now,
		ExpiresAt: now.AddDate(0, 0, plan.DurationDays),
		Active:    true,
		CreatedAt: now,
	}, nil
}
