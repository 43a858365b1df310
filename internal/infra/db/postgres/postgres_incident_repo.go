package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/repository"
)

var _ repository.IncidentRepository = (*incidentRepo)(nil)

type incidentRepo struct {
	pool *pgxpool.Pool
}

func NewIncidentRepo(pool *pgxpool.Pool) *incidentRepo {
	return &incidentRepo{pool: pool}
}

const incidentColumns = `id, kind, buy_order, token, amount, reason, status, attempts, created_at, updated_at`

func (r *incidentRepo) Create(ctx context.Context, tx repository.Tx, inc *model.Incident) error {
	const q = `INSERT INTO reconciliation_incidents (` + incidentColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err := execSQL(ctx, r.pool, tx, q, inc.ID, inc.Kind, inc.BuyOrder, inc.Token, inc.Amount, inc.Reason, inc.Status, inc.Attempts, inc.CreatedAt, inc.UpdatedAt)
	return mapWriteErr("create incident", err)
}

// ListByStatus returns the oldest incidents first.
func (r *incidentRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.IncidentStatus, limit int) ([]*model.Incident, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + incidentColumns + ` FROM reconciliation_incidents WHERE status=$1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, status, limit)
	if err != nil {
		return nil, mapReadErr("list incidents", err)
	}
	defer rows.Close()

	var out []*model.Incident
	for rows.Next() {
		inc := new(model.Incident)
		if err := rows.Scan(&inc.ID, &inc.Kind, &inc.BuyOrder, &inc.Token, &inc.Amount, &inc.Reason, &inc.Status, &inc.Attempts, &inc.CreatedAt, &inc.UpdatedAt); err != nil {
			return nil, mapReadErr("scan incident", err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapReadErr("list incidents", err)
	}
	return out, nil
}

func (r *incidentRepo) Update(ctx context.Context, tx repository.Tx, inc *model.Incident) error {
	const q = `
UPDATE reconciliation_incidents
   SET kind=$2, buy_order=$3, amount=$4, reason=$5, status=$6, attempts=$7, updated_at=$8
 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, inc.ID, inc.Kind, inc.BuyOrder, inc.Amount, inc.Reason, inc.Status, inc.Attempts, inc.UpdatedAt)
	if err != nil {
		return mapWriteErr("update incident", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
