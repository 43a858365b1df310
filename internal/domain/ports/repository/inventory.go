package repository

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

// InventoryRepository is the per-product stock ledger.
type InventoryRepository interface {
	GetProduct(ctx context.Context, tx Tx, productID int64) (*model.Product, error)
	// LockAndDecrement locks the product row for the rest of tx, checks that
	// qty units are available and subtracts them. It returns the product as read
	// under the lock, or a *domain.StockError without writing anything.
	LockAndDecrement(ctx context.Context, tx Tx, productID int64, qty int) (*model.Product, error)
	Save(ctx context.Context, tx Tx, p *model.Product) error
}
