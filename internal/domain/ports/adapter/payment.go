package adapter

import (
	"context"

	"webpay-checkout/internal/domain/model"
)

// CreateRequest is the input of a gateway create-transaction call.
type CreateRequest struct {
	Amount    int64
	BuyOrder  string
	SessionID string
	ReturnURL string
}

// PaymentGateway is the hex port for the payment provider. Implementations
// return *domain.GatewayError for any transport or protocol failure.
type PaymentGateway interface {
	Name() string

	// CreateTransaction registers a transaction and returns where to send the buyer.
	CreateTransaction(ctx context.Context, req CreateRequest) (*model.Checkout, error)
	// ConfirmTransaction commits the transaction behind token. Call at most once per token.
	ConfirmTransaction(ctx context.Context, token string) (*model.Confirmation, error)
	// TransactionStatus reads the transaction without changing it.
	TransactionStatus(ctx context.Context, token string) (*model.Confirmation, error)
}
