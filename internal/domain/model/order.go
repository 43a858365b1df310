package model

import (
	"time"

	"webpay-checkout/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusFailed  OrderStatus = "FAILED"
)

// Order is created once per committed cart checkout. BuyOrder is the serialized
// purchase reference and is unique across orders.
type Order struct {
	ID        string
	UserID    int64
	BuyOrder  string
	Token     string // gateway token of the payment that committed it
	Total     int64  // gateway-confirmed amount
	Status    OrderStatus
	CreatedAt time.Time
	Lines     []OrderLine
}

// OrderLine keeps the unit price as it was when the order was committed.
type OrderLine struct {
	ID        string
	OrderID   string
	ProductID int64
	Quantity  int
	UnitPrice int64
}

func (l OrderLine) Subtotal() int64 { return l.UnitPrice * int64(l.Quantity) }

// NewPaidOrder validates and constructs an order in PAID status.
func NewPaidOrder(id string, userID int64, buyOrder string, total int64, now time.Time) (*Order, error) {
	if id == "" || userID <= 0 || buyOrder == "" || total < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Order{
		ID:        id,
		UserID:    userID,
		BuyOrder:  buyOrder,
		Total:     total,
		Status:    OrderStatusPaid,
		CreatedAt: now,
	}, nil
}
