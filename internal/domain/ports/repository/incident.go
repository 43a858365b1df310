package repository

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

// IncidentRepository stores callbacks that need manual reconciliation.
// Writes must not share a tx with the commit they report on.
type IncidentRepository interface {
	Create(ctx context.Context, tx Tx, inc *model.Incident) error
	ListByStatus(ctx context.Context, tx Tx, status model.IncidentStatus, limit int) ([]*model.Incident, error)
	Update(ctx context.Context, tx Tx, inc *model.Incident) error
}
