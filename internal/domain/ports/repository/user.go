package repository

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id int64) (*model.User, error)
	Save(ctx context.Context, tx Tx, u *model.User) error
}
