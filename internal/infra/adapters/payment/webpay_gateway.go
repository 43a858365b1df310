// File: internal/infra/adapters/payment/webpay_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/adapter"
	"webpay-checkout/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*WebpayGateway)(nil)

const (
	transactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

	MaxBuyOrderLength  = 26
	MaxSessionIDLength = 61

	statusAuthorized = "AUTHORIZED"
)

// WebpayGateway implements adapter.PaymentGateway against the Transbank
// Webpay Plus REST API.
type WebpayGateway struct {
	baseURL      string
	apiKeyID     string
	apiKeySecret string
	client       *http.Client
	log          *zerolog.Logger
}

type WebpayOptions struct {
	BaseURL      string
	APIKeyID     string
	APIKeySecret string
	Timeout      time.Duration
}

func NewWebpayGateway(opts WebpayOptions, logger *zerolog.Logger) (*WebpayGateway, error) {
	if opts.APIKeyID == "" || opts.APIKeySecret == "" {
		return nil, errors.New("webpay api key id and secret are required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid webpay base url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &WebpayGateway{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKeyID:     opts.APIKeyID,
		apiKeySecret: opts.APIKeySecret,
		client:       &http.Client{Timeout: opts.Timeout},
		log:          logger,
	}, nil
}

func (g *WebpayGateway) Name() string { return "webpay" }

type createBody struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	ReturnURL string `json:"return_url"`
}

type createResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// transactionResponse is the body of both commit and status calls.
type transactionResponse struct {
	VCI               string `json:"vci"`
	Amount            int64  `json:"amount"`
	Status            string `json:"status"`
	BuyOrder          string `json:"buy_order"`
	SessionID         string `json:"session_id"`
	AuthorizationCode string `json:"authorization_code"`
	PaymentTypeCode   string `json:"payment_type_code"`
	ResponseCode      int    `json:"response_code"`
}

type errorResponse struct {
	ErrorMessage string `json:"error_message"`
}

func (g *WebpayGateway) CreateTransaction(ctx context.Context, req adapter.CreateRequest) (*model.Checkout, error) {
	if req.Amount <= 0 || req.BuyOrder == "" || req.ReturnURL == "" {
		return nil, domain.ErrInvalidArgument
	}
	if len(req.BuyOrder) > MaxBuyOrderLength || len(req.SessionID) > MaxSessionIDLength {
		return nil, fmt.Errorf("buy_order or session_id too long: %w", domain.ErrInvalidArgument)
	}

	var out createResponse
	body := createBody{BuyOrder: req.BuyOrder, SessionID: req.SessionID, Amount: req.Amount, ReturnURL: req.ReturnURL}
	if err := g.do(ctx, "create", http.MethodPost, g.baseURL+transactionsPath, body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" || out.URL == "" {
		return nil, &domain.GatewayError{Op: "create", StatusCode: http.StatusOK, Message: "response without token or url"}
	}
	return &model.Checkout{RedirectURL: out.URL, Token: out.Token, BuyOrder: req.BuyOrder}, nil
}

// ConfirmTransaction commits the transaction. Transbank answers 422 for a token
// that was already committed; that surfaces as a GatewayError.
func (g *WebpayGateway) ConfirmTransaction(ctx context.Context, token string) (*model.Confirmation, error) {
	return g.transaction(ctx, "confirm", http.MethodPut, token)
}

func (g *WebpayGateway) TransactionStatus(ctx context.Context, token string) (*model.Confirmation, error) {
	return g.transaction(ctx, "status", http.MethodGet, token)
}

func (g *WebpayGateway) transaction(ctx context.Context, op, method, token string) (*model.Confirmation, error) {
	if token == "" {
		return nil, domain.ErrInvalidArgument
	}
	var out transactionResponse
	endpoint := g.baseURL + transactionsPath + "/" + url.PathEscape(token)
	if err := g.do(ctx, op, method, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &model.Confirmation{
		Approved:          out.ResponseCode == 0 && out.Status == statusAuthorized,
		Amount:            out.Amount,
		BuyOrder:          out.BuyOrder,
		SessionID:         out.SessionID,
		ResponseCode:      out.ResponseCode,
		Status:            out.Status,
		AuthorizationCode: out.AuthorizationCode,
	}, nil
}

func (g *WebpayGateway) do(ctx context.Context, op, method, endpoint string, in, out any) (err error) {
	start := time.Now()
	result := "ok"
	defer func() {
		if err != nil {
			result = "error"
		}
		metrics.ObserveGatewayCall(op, result, time.Since(start))
	}()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &domain.GatewayError{Op: op, Message: "encode request", Err: err}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &domain.GatewayError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Tbk-Api-Key-Id", g.apiKeyID)
	req.Header.Set("Tbk-Api-Key-Secret", g.apiKeySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return &domain.GatewayError{Op: op, Message: "transport", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "read body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &e) == nil && e.ErrorMessage != "" {
			msg = e.ErrorMessage
		}
		g.log.Warn().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("error_message", msg).
			Msg("webpay call rejected")
		return &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}
