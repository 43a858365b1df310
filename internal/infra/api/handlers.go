package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/infra/logging"
	"webpay-checkout/internal/infra/redis"
	"webpay-checkout/internal/usecase"
)

const maxBodyBytes = 16 << 10

type createCheckoutRequest struct {
	Amount    int64  `json:"amount" validate:"gte=0"`
	BuyOrder  string `json:"buyOrder,omitempty" validate:"omitempty,max=26"`
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,max=61"`
	ReturnURL string `json:"returnUrl,omitempty" validate:"omitempty,url"`
	PlanID    int64  `json:"planId,omitempty" validate:"gte=0"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.With(ctx, s.log)

	userID, ok := logging.UserIDFrom(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	if s.limiter != nil && s.createLimit > 0 {
		allowed, err := s.limiter.Allow(ctx, redis.CheckoutCreateKey(userID), s.createLimit, time.Minute)
		if err != nil {
			l.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many checkout attempts", "")
			return
		}
	}

	var req createCheckoutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	checkout, err := s.checkout.Initiate(ctx, usecase.InitiateInput{
		UserID:    userID,
		Amount:    req.Amount,
		BuyOrder:  req.BuyOrder,
		SessionID: req.SessionID,
		ReturnURL: req.ReturnURL,
		PlanID:    req.PlanID,
	})
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			l.Error().Err(err).Msg("create checkout failed")
		}
		writeError(w, status, msg, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, checkout)
}

// handleReturn accepts the gateway callback as GET (query) or POST (form)
// and always answers with a redirect to the result page.
func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid callback", err.Error())
		return
	}

	var p model.ReturnParams
	binds := []struct {
		name string
		dst  *string
	}{
		{"token_ws", &p.TokenWS},
		{"TBK_TOKEN", &p.TBKToken},
		{"TBK_ORDEN_COMPRA", &p.TBKBuyOrder},
		{"TBK_ID_SESION", &p.TBKSessionID},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, r.Form, b.dst); err != nil {
			writeError(w, http.StatusBadRequest, "invalid callback parameter", err.Error())
			return
		}
	}

	res := s.checkout.HandleReturn(r.Context(), p)

	code := http.StatusFound
	if r.Method == http.MethodPost {
		code = http.StatusSeeOther
	}
	http.Redirect(w, r, s.reporter.RedirectURL(res.Report), code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, p := range s.health {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrDecode), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid purchase"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrDuplicateReference):
		return http.StatusConflict, "purchase already committed"
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway, "payment gateway error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	if status == http.StatusInternalServerError {
		detail = ""
	}
	writeJSON(w, status, errorResponse{Error: msg, Detail: detail})
}
