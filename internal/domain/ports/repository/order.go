package repository

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

type OrderRepository interface {
	// Create inserts the order header and any lines already attached. A second
	// order for the same BuyOrder fails with domain.ErrDuplicateReference.
	Create(ctx context.Context, tx Tx, o *model.Order) error
	AddLine(ctx context.Context, tx Tx, l *model.OrderLine) error
	ExistsByBuyOrder(ctx context.Context, tx Tx, buyOrder string) (bool, error)
	FindByBuyOrder(ctx context.Context, tx Tx, buyOrder string) (*model.Order, error)
	// TokenByBuyOrder returns the gateway token stored with the committed
	// order, or domain.ErrNotFound.
	TokenByBuyOrder(ctx context.Context, tx Tx, buyOrder string) (string, error)
}
