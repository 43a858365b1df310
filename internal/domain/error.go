package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Checkout errors
	ErrDecode             = errors.New("malformed purchase reference")
	ErrGateway            = errors.New("payment gateway error")
	ErrPaymentDeclined    = errors.New("payment declined by gateway")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrEmptyCartPayment   = errors.New("payment approved for an empty cart")
	ErrDuplicateReference = errors.New("purchase reference already committed")
	ErrReferenceReused    = errors.New("purchase reference already committed by another payment")
	ErrAmountMismatch     = errors.New("confirmed amount does not match purchase total")
	ErrCallbackInFlight   = errors.New("callback for this token is already being processed")
	ErrForbidden          = errors.New("operation not permitted for this user")
)

// GatewayError describes a failed call to the payment gateway. A GatewayError is never
// an approval: callers must treat it as an unknown or failed outcome.
type GatewayError struct {
	Op         string // create | confirm | status
	StatusCode int    // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: http %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, msg)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// StockError reports the product that blocked a commit.
type StockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }
