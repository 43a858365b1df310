package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/repository"
)

var _ repository.CartRepository = (*cartRepo)(nil)

type cartRepo struct {
	pool *pgxpool.Pool
}

func NewCartRepo(pool *pgxpool.Pool) *cartRepo {
	return &cartRepo{pool: pool}
}

func (r *cartRepo) GetOrCreate(ctx context.Context, tx repository.Tx, userID int64) (*model.Cart, error) {
	const ins = `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING;`
	if _, err := execSQL(ctx, r.pool, tx, ins, userID); err != nil {
		return nil, mapWriteErr("create cart", err)
	}

	q := `SELECT id, user_id FROM carts WHERE user_id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	c := &model.Cart{}
	if err := row.Scan(&c.ID, &c.UserID); err != nil {
		return nil, mapReadErr("find cart", err)
	}

	const items = `SELECT product_id, quantity FROM cart_items WHERE cart_id=$1 ORDER BY product_id;`
	rows, err := queryRows(ctx, r.pool, tx, items, c.ID)
	if err != nil {
		return nil, mapReadErr("list cart items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, mapReadErr("scan cart item", err)
		}
		c.Lines = append(c.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapReadErr("list cart items", err)
	}
	return c, nil
}

func (r *cartRepo) SetLine(ctx context.Context, tx repository.Tx, cartID, productID int64, quantity int) error {
	if quantity <= 0 {
		const q = `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2;`
		_, err := execSQL(ctx, r.pool, tx, q, cartID, productID)
		return mapWriteErr("remove cart item", err)
	}
	const q = `
INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1,$2,$3)
ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity=EXCLUDED.quantity;`
	if _, err := execSQL(ctx, r.pool, tx, q, cartID, productID, quantity); err != nil {
		return mapWriteErr("set cart item", err)
	}
	const touch = `UPDATE carts SET updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, touch, cartID)
	return mapWriteErr("touch cart", err)
}

func (r *cartRepo) Clear(ctx context.Context, tx repository.Tx, cartID int64) error {
	const q = `DELETE FROM cart_items WHERE cart_id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, cartID); err != nil {
		return mapWriteErr("clear cart", err)
	}
	const touch = `UPDATE carts SET updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, touch, cartID)
	return mapWriteErr("touch cart", err)
}
