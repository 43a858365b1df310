package adapter

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

// IncidentNotifier delivers reconciliation incidents to operators.
type IncidentNotifier interface {
	Notify(ctx context.Context, inc *model.Incident) error
}
