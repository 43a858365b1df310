package repository

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

// CartRepository is the cart snapshot store.
type CartRepository interface {
	// GetOrCreate returns the user's cart with its lines, creating an empty cart
	// on first access. With a tx the cart row stays locked until the tx ends.
	GetOrCreate(ctx context.Context, tx Tx, userID int64) (*model.Cart, error)
	// SetLine upserts a line; quantity <= 0 removes it.
	SetLine(ctx context.Context, tx Tx, cartID, productID int64, quantity int) error
	// Clear deletes every line of the cart.
	Clear(ctx context.Context, tx Tx, cartID int64) error
}
