package adapter

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

// CallbackGuard de-duplicates concurrent deliveries of the same gateway token
// so only one of them issues the confirm call. It is an optimisation; the
// unique buy_order constraint remains authoritative.
type CallbackGuard interface {
	// Claim returns true when the caller owns the token.
	Claim(ctx context.Context, token string) (bool, error)
	// Outcome returns the stored report for token, or nil when none exists yet.
	Outcome(ctx context.Context, token string) (*model.Report, error)
	// Remember stores the final report for token.
	Remember(ctx context.Context, token string, r model.Report) error
}
