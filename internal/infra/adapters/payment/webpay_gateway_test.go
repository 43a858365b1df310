//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/ports/adapter"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *WebpayGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := zerolog.New(io.Discard)
	g, err := NewWebpayGateway(WebpayOptions{
		BaseURL:      srv.URL,
		APIKeyID:     "597055555532",
		APIKeySecret: "secret",
		Timeout:      time.Second,
	}, &logger)
	if err != nil {
		t.Fatalf("NewWebpayGateway: %v", err)
	}
	return g
}

func TestWebpayGateway_CreateTransaction(t *testing.T) {
	ctx := context.Background()
	req := adapter.CreateRequest{Amount: 3000, BuyOrder: "C7T1760572800123", SessionID: "S7T1760572800", ReturnURL: "https://api.shop.test/checkout/return"}

	t.Run("should post the transaction with api key headers", func(t *testing.T) {
		// --- Arrange ---
		var got createBody
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != transactionsPath {
				t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get("Tbk-Api-Key-Id") != "597055555532" || r.Header.Get("Tbk-Api-Key-Secret") != "secret" {
				t.Error("missing api key headers")
			}
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"token":"01ab","url":"https://webpay3gint.transbank.cl/webpayserver/initTransaction"}`))
		})

		// --- Act ---
		co, err := g.CreateTransaction(ctx, req)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if co.Token != "01ab" || !strings.HasSuffix(co.RedirectURL, "/initTransaction") || co.BuyOrder != req.BuyOrder {
			t.Errorf("unexpected checkout %+v", co)
		}
		if got.BuyOrder != req.BuyOrder || got.Amount != 3000 || got.ReturnURL != req.ReturnURL || got.SessionID != req.SessionID {
			t.Errorf("unexpected body %+v", got)
		}
	})

	t.Run("should reject an oversize buy order before calling out", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("gateway must not be called")
		})
		bad := req
		bad.BuyOrder = strings.Repeat("9", MaxBuyOrderLength+1)

		_, err := g.CreateTransaction(ctx, bad)

		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should carry the gateway error message", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error_message":"Not Authorized"}`))
		})

		_, err := g.CreateTransaction(ctx, req)

		var ge *domain.GatewayError
		if !errors.As(err, &ge) || ge.StatusCode != http.StatusUnauthorized || ge.Message != "Not Authorized" {
			t.Fatalf("expected a 401 GatewayError, got %v", err)
		}
		if !errors.Is(err, domain.ErrGateway) {
			t.Error("expected the error to match ErrGateway")
		}
	})

	t.Run("should treat an undecodable body as a gateway error", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		})

		if _, err := g.CreateTransaction(ctx, req); !errors.Is(err, domain.ErrGateway) {
			t.Errorf("expected ErrGateway, got %v", err)
		}
	})
}

func TestWebpayGateway_ConfirmTransaction(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		body     string
		approved bool
	}{
		{
			name:     "should approve an authorized transaction",
			body:     `{"vci":"TSY","amount":3000,"status":"AUTHORIZED","buy_order":"C7T1","session_id":"S7T1","authorization_code":"1213","response_code":0}`,
			approved: true,
		},
		{
			name: "should not approve a rejected transaction",
			body: `{"amount":3000,"status":"FAILED","buy_order":"C7T1","response_code":-1}`,
		},
		{
			name: "should require both the code and the status",
			body: `{"amount":3000,"status":"AUTHORIZED","buy_order":"C7T1","response_code":-3}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut || r.URL.Path != transactionsPath+"/tok-1" {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				_, _ = w.Write([]byte(tc.body))
			})

			// --- Act ---
			conf, err := g.ConfirmTransaction(ctx, "tok-1")

			// --- Assert ---
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if conf.Approved != tc.approved || conf.Amount != 3000 || conf.BuyOrder != "C7T1" {
				t.Errorf("unexpected confirmation %+v", conf)
			}
		})
	}

	t.Run("should report a timeout as a gateway error", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(1500 * time.Millisecond)
		})

		if _, err := g.ConfirmTransaction(ctx, "tok-1"); !errors.Is(err, domain.ErrGateway) {
			t.Errorf("expected ErrGateway, got %v", err)
		}
	})

	t.Run("should query status with GET", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			_, _ = w.Write([]byte(`{"amount":9990,"status":"AUTHORIZED","buy_order":"P3U7T1","response_code":0}`))
		})

		conf, err := g.TransactionStatus(ctx, "tok-1")

		if err != nil || !conf.Approved || conf.BuyOrder != "P3U7T1" {
			t.Errorf("unexpected status %+v, %v", conf, err)
		}
	})
}

func TestMemoryGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("should approve once and refuse a second commit", func(t *testing.T) {
		g := NewMemoryGateway()
		co, err := g.CreateTransaction(ctx, adapter.CreateRequest{Amount: 1000, BuyOrder: "C7T1", ReturnURL: "https://x"})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}

		conf, err := g.ConfirmTransaction(ctx, co.Token)
		if err != nil || !conf.Approved || conf.Amount != 1000 {
			t.Fatalf("unexpected confirmation %+v, %v", conf, err)
		}
		if _, err := g.ConfirmTransaction(ctx, co.Token); !errors.Is(err, domain.ErrGateway) {
			t.Errorf("expected a second commit to fail, got %v", err)
		}
	})

	t.Run("should decline on request", func(t *testing.T) {
		g := NewMemoryGateway()
		co, _ := g.CreateTransaction(ctx, adapter.CreateRequest{Amount: 1000, BuyOrder: "C7T1", ReturnURL: "https://x"})
		g.Decline(co.Token)

		conf, err := g.ConfirmTransaction(ctx, co.Token)

		if err != nil || conf.Approved {
			t.Errorf("expected a decline, got %+v, %v", conf, err)
		}
	})
}
