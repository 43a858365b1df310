package model

// CheckoutState is the orchestrator state for a single callback.
type CheckoutState string

const (
	StateInitiated  CheckoutState = "INITIATED"
	StateConfirming CheckoutState = "CONFIRMING"
	StateCommitted  CheckoutState = "COMMITTED"
	StateFailed     CheckoutState = "FAILED"
	StateAborted    CheckoutState = "ABORTED"
)

func (s CheckoutState) Terminal() bool {
	return s == StateCommitted || s == StateFailed || s == StateAborted
}

// ReportStatus is the status value handed to the frontend redirect.
type ReportStatus string

const (
	ReportSuccess           ReportStatus = "success"
	ReportFailed            ReportStatus = "failed"
	ReportAborted           ReportStatus = "aborted"
	ReportFailedPostPayment ReportStatus = "failed_post_payment"
)

// Report is the externally visible result of a callback.
type Report struct {
	Status   ReportStatus `json:"status"`
	Amount   int64        `json:"amount"`
	BuyOrder string       `json:"buy_order"`
}

// Outcome is the orchestrator's terminal result for one callback.
type Outcome struct {
	State       CheckoutState
	BuyOrder    string
	Amount      int64
	PostPayment bool // gateway approved before the failure
	Duplicate   bool // reference was already committed
	Err         error
}

// ReturnParams are the gateway-originated values of the return callback.
type ReturnParams struct {
	TokenWS      string // token_ws, success path
	TBKToken     string // TBK_TOKEN, abort path
	TBKBuyOrder  string // TBK_ORDEN_COMPRA
	TBKSessionID string // TBK_ID_SESION
}

// Checkout is what createTransaction returns to the caller.
type Checkout struct {
	RedirectURL string `json:"redirectUrl"`
	Token       string `json:"token"`
	BuyOrder    string `json:"buyOrder"`
}

// Confirmation is the gateway's answer to a confirm or status call.
type Confirmation struct {
	Approved          bool
	Amount            int64
	BuyOrder          string
	SessionID         string
	ResponseCode      int
	Status            string
	AuthorizationCode string
}
