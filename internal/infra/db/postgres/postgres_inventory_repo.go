package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/repository"
)

var _ repository.InventoryRepository = (*inventoryRepo)(nil)

type inventoryRepo struct {
	pool *pgxpool.Pool
}

func NewInventoryRepo(pool *pgxpool.Pool) *inventoryRepo {
	return &inventoryRepo{pool: pool}
}

func (r *inventoryRepo) GetProduct(ctx context.Context, tx repository.Tx, productID int64) (*model.Product, error) {
	const q = `SELECT id, name, price, stock FROM products WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, productID)
	if err != nil {
		return nil, err
	}
	p := &model.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
		return nil, mapReadErr("get product", err)
	}
	return p, nil
}

// LockAndDecrement relies on the conditional UPDATE for both the check and
// the row lock, so a failed check writes nothing.
func (r *inventoryRepo) LockAndDecrement(ctx context.Context, tx repository.Tx, productID int64, qty int) (*model.Product, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	const q = `
UPDATE products
   SET stock = stock - $2
 WHERE id = $1 AND stock >= $2
RETURNING id, name, price, stock;`
	row, err := pickRow(ctx, r.pool, tx, q, productID, qty)
	if err != nil {
		return nil, err
	}
	p := &model.Product{}
	err = row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapWriteErr("decrement stock", err)
	}

	cur, err := r.GetProduct(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	return nil, &domain.StockError{ProductID: productID, Requested: qty, Available: cur.Stock}
}

func (r *inventoryRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	if p.ID == 0 {
		const q = `INSERT INTO products (name, price, stock) VALUES ($1,$2,$3) RETURNING id;`
		row, err := pickRow(ctx, r.pool, tx, q, p.Name, p.Price, p.Stock)
		if err != nil {
			return err
		}
		return mapWriteErr("insert product", row.Scan(&p.ID))
	}
	const q = `
INSERT INTO products (id, name, price, stock) VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, price=EXCLUDED.price, stock=EXCLUDED.stock;`
	if _, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Price, p.Stock); err != nil {
		return mapWriteErr("save product", err)
	}
	return bumpSerial(ctx, r.pool, tx, "products")
}
