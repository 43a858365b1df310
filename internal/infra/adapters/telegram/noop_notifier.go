package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/adapter"
)

var _ adapter.IncidentNotifier = (*NoopNotifier)(nil)

// NoopNotifier logs alerts instead of sending them. Used when no bot token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) Notify(ctx context.Context, inc *model.Incident) error {
	n.log.Warn().
		Str("incident_id", inc.ID).
		Str("kind", string(inc.Kind)).
		Str("buy_order", inc.BuyOrder).
		Int64("amount", inc.Amount).
		Msg("incident alert (telegram disabled)")
	return nil
}
