package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

const ordersBuyOrderKey = "orders_buy_order_key"

type orderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

func (r *orderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (id, user_id, buy_order, token, total, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.UserID, o.BuyOrder, o.Token, o.Total, o.Status, o.CreatedAt)
	if isUniqueViolation(err, ordersBuyOrderKey) {
		return fmt.Errorf("order %s: %w", o.BuyOrder, domain.ErrDuplicateReference)
	}
	if err != nil {
		return mapWriteErr("create order", err)
	}
	for i := range o.Lines {
		if err := r.AddLine(ctx, tx, &o.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepo) AddLine(ctx context.Context, tx repository.Tx, l *model.OrderLine) error {
	const q = `
INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
VALUES ($1,$2,$3,$4,$5);`
	_, err := execSQL(ctx, r.pool, tx, q, l.ID, l.OrderID, l.ProductID, l.Quantity, l.UnitPrice)
	return mapWriteErr("add order line", err)
}

func (r *orderRepo) ExistsByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM orders WHERE buy_order=$1);`
	row, err := pickRow(ctx, r.pool, tx, q, buyOrder)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, mapReadErr("order exists", err)
	}
	return ok, nil
}

func (r *orderRepo) FindByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (*model.Order, error) {
	const q = `SELECT id, user_id, buy_order, token, total, status, created_at FROM orders WHERE buy_order=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, buyOrder)
	if err != nil {
		return nil, err
	}
	o := &model.Order{}
	if err := row.Scan(&o.ID, &o.UserID, &o.BuyOrder, &o.Token, &o.Total, &o.Status, &o.CreatedAt); err != nil {
		return nil, mapReadErr("find order", err)
	}

	const lq = `
SELECT id, order_id, product_id, quantity, unit_price
  FROM order_items
 WHERE order_id=$1
 ORDER BY product_id;`
	rows, err := queryRows(ctx, r.pool, tx, lq, o.ID)
	if err != nil {
		return nil, mapReadErr("list order lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l model.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, mapReadErr("scan order line", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapReadErr("list order lines", err)
	}
	return o, nil
}

func (r *orderRepo) TokenByBuyOrder(ctx context.Context, tx repository.Tx, buyOrder string) (string, error) {
	const q = `SELECT token FROM orders WHERE buy_order=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, buyOrder)
	if err != nil {
		return "", err
	}
	var token string
	if err := row.Scan(&token); err != nil {
		return "", mapReadErr("order token", err)
	}
	return token, nil
}
