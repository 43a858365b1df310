package postgres

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v4/pgxpool"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

const (
	subscriptionsBuyOrderKey  = "subscriptions_buy_order_key"
	subscriptionsOneActiveKey = "ux_subscriptions_one_active"
)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func userLockKey(userID int64) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "subscription:%d", userID)
	return int64(h.Sum64())
}

// LockUser takes a transaction-scoped advisory lock. Outside a transaction the
// lock is released as soon as the statement finishes.
func (r *subscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID int64) error {
	const q = `SELECT pg_advisory_xact_lock($1);`
	_, err := execSQL(ctx, r.pool, tx, q, userLockKey(userID))
	return mapWriteErr("lock user subscriptions", err)
}

func (r *subscriptionRepo) Create(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan_id, buy_order, token, start_at, expires_at, active, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.PlanID, s.BuyOrder, s.Token, s.StartAt, s.ExpiresAt, s.Active, s.CreatedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, subscriptionsBuyOrderKey):
		return fmt.Errorf("subscription %s: %w", s.BuyOrder, domain.ErrDuplicateReference)
	case isUniqueViolation(err, subscriptionsOneActiveKey):
		return fmt.Errorf("user %d already has an active subscription: %w", s.UserID, domain.ErrAlreadyExists)
	default:
		return mapWriteErr("create subscription", err)
	}
}

func (r *subscriptionRepo) DeactivateActive(ctx context.Context, tx repository.Tx, userID int64) (int64, error) {
	const q = `UPDATE subscriptions SET active=false WHERE user_id=$1 AND active;`
	tag, err := execSQL(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, mapWriteErr("deactivate subscriptions", err)
	}
	return tag.RowsAffected(), nil
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID int64) (*model.Subscription, error) {
	const q = `
SELECT id, user_id, plan_id, buy_order, token, start_at, expires_at, active, created_at
  FROM subscriptions
 WHERE user_id=$1 AND active
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.BuyOrder, &s.Token, &s.StartAt, &s.ExpiresAt, &s.Active, &s.CreatedAt); err != nil {
		return nil, mapReadErr("find active subscription", err)
	}
	return s, nil
}

func (r *subscriptionRepo) ExistsByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE buy_order=$1);`
	row, err := pickRow(ctx, r.pool, tx, q, buyOrder)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, mapReadErr("subscription exists", err)
	}
	return ok, nil
}

func (r *subscriptionRepo) TokenByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (string, error) {
	const q = `SELECT token FROM subscriptions WHERE buy_order=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, buyOrder)
	if err != nil {
		return "", err
	}
	var token string
	if err := row.Scan(&token); err != nil {
		return "", mapReadErr("subscription token", err)
	}
	return token, nil
}
