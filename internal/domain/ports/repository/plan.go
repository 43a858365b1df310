package repository

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

type PlanRepository interface {
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Plan, error)
	Save(ctx context.Context, tx Tx, p *model.Plan) error
}
