// File: internal/infra/adapters/kafka/noop_publisher.go
package kafka

import (
	"context"

	"github.com/rs/zerolog"

	"webpay-checkout/internal/domain/ports/adapter"
)

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct {
	log *zerolog.Logger
}

func NewNoopPublisher(logger *zerolog.Logger) *NoopPublisher {
	return &NoopPublisher{log: logger}
}

func (n *NoopPublisher) Publish(_ context.Context, ev adapter.CheckoutEvent) error {
	n.log.Debug().Str("type", ev.Type).Str("buy_order", ev.BuyOrder).Msg("event publishing disabled")
	return nil
}
