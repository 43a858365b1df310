package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.ID == 0 {
		const q = `INSERT INTO plans (name, price, duration_days, created_at) VALUES ($1,$2,$3,$4) RETURNING id;`
		row, err := pickRow(ctx, r.pool, tx, q, p.Name, p.Price, p.DurationDays, p.CreatedAt)
		if err != nil {
			return err
		}
		return mapWriteErr("insert plan", row.Scan(&p.ID))
	}
	const q = `
INSERT INTO plans (id, name, price, duration_days, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
  SET name          = EXCLUDED.name,
      price         = EXCLUDED.price,
      duration_days = EXCLUDED.duration_days;
`
	if _, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Price, p.DurationDays, p.CreatedAt); err != nil {
		return mapWriteErr("save plan", err)
	}
	return bumpSerial(ctx, r.pool, tx, "plans")
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	const q = `
SELECT id, name, price, duration_days, created_at
  FROM plans
 WHERE id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var p model.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.CreatedAt); err != nil {
		return nil, mapReadErr("find plan", err)
	}
	return &p, nil
}
