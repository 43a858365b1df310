package payment

import (
	"context"
	"fmt"
	"sync"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*MemoryGateway)(nil)

// MemoryGateway is an in-process gateway for local runs and tests. Every
// created transaction is approved unless Decline was called for its token.
type MemoryGateway struct {
	mu  sync.Mutex
	seq int64
	txs map[string]*memoryTx
}

type memoryTx struct {
	req       adapter.CreateRequest
	declined  bool
	committed bool
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{txs: make(map[string]*memoryTx)}
}

func (g *MemoryGateway) Name() string { return "memory" }

func (g *MemoryGateway) CreateTransaction(ctx context.Context, req adapter.CreateRequest) (*model.Checkout, error) {
	if req.Amount <= 0 || req.BuyOrder == "" {
		return nil, domain.ErrInvalidArgument
	}
	if len(req.BuyOrder) > MaxBuyOrderLength || len(req.SessionID) > MaxSessionIDLength {
		return nil, domain.ErrInvalidArgument
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	token := fmt.Sprintf("mem-%d", g.seq)
	g.txs[token] = &memoryTx{req: req}
	return &model.Checkout{RedirectURL: "https://gateway.invalid/init", Token: token, BuyOrder: req.BuyOrder}, nil
}

// Decline makes the next confirm of token come back rejected.
func (g *MemoryGateway) Decline(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if tx, ok := g.txs[token]; ok {
		tx.declined = true
	}
}

func (g *MemoryGateway) ConfirmTransaction(ctx context.Context, token string) (*model.Confirmation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tx, ok := g.txs[token]
	if !ok {
		return nil, &domain.GatewayError{Op: "confirm", StatusCode: 404, Message: "transaction not found"}
	}
	if tx.committed {
		return nil, &domain.GatewayError{Op: "confirm", StatusCode: 422, Message: "transaction already committed"}
	}
	tx.committed = true
	return g.confirmation(tx), nil
}

func (g *MemoryGateway) TransactionStatus(ctx context.Context, token string) (*model.Confirmation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tx, ok := g.txs[token]
	if !ok {
		return nil, &domain.GatewayError{Op: "status", StatusCode: 404, Message: "transaction not found"}
	}
	return g.confirmation(tx), nil
}

func (g *MemoryGateway) confirmation(tx *memoryTx) *model.Confirmation {
	c := &model.Confirmation{
		Approved:  !tx.declined && tx.committed,
		Amount:    tx.req.Amount,
		BuyOrder:  tx.req.BuyOrder,
		SessionID: tx.req.SessionID,
		Status:    statusAuthorized,
	}
	switch {
	case tx.declined:
		c.Status, c.ResponseCode = "FAILED", -1
	case !tx.committed:
		c.Status = "INITIALIZED"
	default:
		c.AuthorizationCode = "1213"
	}
	return c
}
