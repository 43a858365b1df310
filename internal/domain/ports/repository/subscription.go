package repository

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

// SubscriptionRepository is the port for plan subscriptions.
type SubscriptionRepository interface {
	// LockUser serializes plan commits of one user until tx ends.
	LockUser(ctx context.Context, tx Tx, userID int64) error
	// Create inserts the subscription; a duplicate BuyOrder fails with domain.ErrDuplicateReference.
	Create(ctx context.Context, tx Tx, s *model.Subscription) error
	// DeactivateActive flips every active subscription of the user to inactive.
	DeactivateActive(ctx context.Context, tx Tx, userID int64) (int64, error)
	FindActiveByUser(ctx context.Context, tx Tx, userID int64) (*model.Subscription, error)
	ExistsByBuyOrder(ctx context.Context, tx Tx, buyOrder string) (bool, error)
	TokenByBuyOrder(ctx context.Context, tx Tx, buyOrder string) (string, error)
}
