package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

// Save upserts u. A zero ID lets the database assign one and writes it back.
func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.ID == 0 {
		const q = `INSERT INTO users (username, email, created_at) VALUES ($1,$2,$3) RETURNING id;`
		row, err := pickRow(ctx, r.pool, tx, q, u.Username, u.Email, u.CreatedAt)
		if err != nil {
			return err
		}
		return mapWriteErr("insert user", row.Scan(&u.ID))
	}
	const q = `
INSERT INTO users (id, username, email, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET username=EXCLUDED.username, email=EXCLUDED.email;`
	if _, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Username, u.Email, u.CreatedAt); err != nil {
		return mapWriteErr("save user", err)
	}
	return bumpSerial(ctx, r.pool, tx, "users")
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	const q = `SELECT id, username, email, created_at FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
		return nil, mapReadErr("find user", err)
	}
	return u, nil
}
