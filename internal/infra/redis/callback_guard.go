package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/adapter"
	"webpay-checkout/internal/infra/metrics"
)

var _ adapter.CallbackGuard = (*CallbackGuard)(nil)

// CallbackGuard lets only one delivery of a gateway token run confirm and
// commit, and caches the resulting report for the deliveries that lose.
type CallbackGuard struct {
	client     RedisClient
	claimTTL   time.Duration
	outcomeTTL time.Duration
	log        *zerolog.Logger
}

func NewCallbackGuard(client RedisClient, claimTTL, outcomeTTL time.Duration, logger *zerolog.Logger) *CallbackGuard {
	if claimTTL <= 0 {
		claimTTL = time.Minute
	}
	if outcomeTTL <= 0 {
		outcomeTTL = 24 * time.Hour
	}
	return &CallbackGuard{client: client, claimTTL: claimTTL, outcomeTTL: outcomeTTL, log: logger}
}

func claimKey(token string) string   { return fmt.Sprintf("checkout:claim:%s", token) }
func outcomeKey(token string) string { return fmt.Sprintf("checkout:outcome:%s", token) }

// Claim returns true for exactly one caller per token within the claim TTL.
func (g *CallbackGuard) Claim(ctx context.Context, token string) (bool, error) {
	ok, err := g.client.SetNX(ctx, claimKey(token), uuid.NewString(), g.claimTTL)
	if err != nil {
		metrics.IncCacheRequest("callback_claim", "error")
		return false, err
	}
	if ok {
		metrics.IncCacheRequest("callback_claim", "won")
	} else {
		metrics.IncCacheRequest("callback_claim", "lost")
	}
	return ok, nil
}

// Outcome returns the cached report for token, or nil when none is stored.
func (g *CallbackGuard) Outcome(ctx context.Context, token string) (*model.Report, error) {
	val, err := g.client.Get(ctx, outcomeKey(token))
	if err == redis.Nil {
		metrics.IncCacheRequest("callback_outcome", "miss")
		return nil, nil
	}
	if err != nil {
		metrics.IncCacheRequest("callback_outcome", "error")
		return nil, err
	}
	var rep model.Report
	if err := json.Unmarshal([]byte(val), &rep); err != nil {
		g.log.Warn().Err(err).Msg("discarding unreadable cached outcome")
		metrics.IncCacheRequest("callback_outcome", "miss")
		return nil, nil
	}
	metrics.IncCacheRequest("callback_outcome", "hit")
	return &rep, nil
}

// Remember stores the report so later deliveries of token can answer without
// touching the gateway.
func (g *CallbackGuard) Remember(ctx context.Context, token string, rep model.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return g.client.Set(ctx, outcomeKey(token), data, g.outcomeTTL)
}
