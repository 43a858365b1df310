// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/adapter"
	"webpay-checkout/internal/domain/ports/repository"
	"webpay-checkout/internal/domain/reference"
	"webpay-checkout/internal/infra/logging"
	"webpay-checkout/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase drives a purchase from gateway transaction creation to the
// committed order or subscription.
type CheckoutUseCase interface {
	// Initiate creates the gateway transaction (state INITIATED).
	Initiate(ctx context.Context, in InitiateInput) (*model.Checkout, error)
	// HandleReturn processes one gateway return callback to a terminal state.
	HandleReturn(ctx context.Context, p model.ReturnParams) ReturnResult
}

type InitiateInput struct {
	UserID    int64
	Amount    int64 // 0 selects the plan price or the configured default
	BuyOrder  string
	SessionID string
	ReturnURL string
	PlanID    int64 // used only when BuyOrder is empty
}

// ReturnResult is the terminal outcome of a callback and its report.
type ReturnResult struct {
	Outcome model.Outcome
	Report  model.Report
	// Cached is set when another delivery of the same token produced the report.
	Cached bool
}

type AmountPolicy string

const (
	AmountTrustGateway   AmountPolicy = "trust_gateway"
	AmountRejectMismatch AmountPolicy = "reject_mismatch"
)

type CheckoutOptions struct {
	DefaultAmount int64
	ReturnURL     string
	AmountPolicy  AmountPolicy
	DuplicateWait time.Duration
	PollInterval  time.Duration
	CommitTimeout time.Duration
}

// CheckoutDeps groups the collaborators of the orchestrator. Guard and Events
// are optional.
type CheckoutDeps struct {
	Codec     *reference.Codec
	Gateway   adapter.PaymentGateway
	Carts     repository.CartRepository
	Inventory repository.InventoryRepository
	Orders    repository.OrderRepository
	Subs      repository.SubscriptionRepository
	Plans     repository.PlanRepository
	Users     repository.UserRepository
	Incidents repository.IncidentRepository
	Guard     adapter.CallbackGuard
	Events    adapter.EventPublisher
	TM        repository.TransactionManager
	Reporter  *OutcomeReporter
}

type checkoutUC struct {
	CheckoutDeps
	opts CheckoutOptions
	log  *zerolog.Logger
	now  func() time.Time
}

func NewCheckoutUseCase(deps CheckoutDeps, opts CheckoutOptions, logger *zerolog.Logger) *checkoutUC {
	if opts.DefaultAmount <= 0 {
		opts.DefaultAmount = 1000
	}
	if opts.AmountPolicy == "" {
		opts.AmountPolicy = AmountTrustGateway
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 15 * time.Second
	}
	if deps.Codec == nil {
		deps.Codec = reference.NewCodec()
	}
	return &checkoutUC{CheckoutDeps: deps, opts: opts, log: logger, now: time.Now}
}

func (u *checkoutUC) Initiate(ctx context.Context, in InitiateInput) (*model.Checkout, error) {
	defer logging.TraceDuration(u.log, "CheckoutUC.Initiate")()

	if in.UserID <= 0 || in.Amount < 0 {
		return nil, domain.ErrInvalidArgument
	}

	buyOrder := in.BuyOrder
	planID := in.PlanID
	if buyOrder == "" {
		var err error
		if planID > 0 {
			buyOrder, err = u.Codec.EncodePlan(planID, in.UserID)
		} else {
			buyOrder, err = u.Codec.EncodeCart(in.UserID)
		}
		if err != nil {
			return nil, err
		}
	} else {
		ref, err := reference.Decode(buyOrder)
		if err != nil {
			return nil, err
		}
		if ref.Owner() != in.UserID {
			return nil, fmt.Errorf("buy order %s belongs to another user: %w", buyOrder, domain.ErrForbidden)
		}
		_, err = committedToken(ctx, u.Orders, u.Subs, repository.NoTX, ref)
		switch {
		case err == nil:
			return nil, fmt.Errorf("buy order %s: %w", buyOrder, domain.ErrDuplicateReference)
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		planID = 0
		if p, ok := ref.(reference.PlanPurchase); ok {
			planID = p.PlanID
		}
	}

	amount := in.Amount
	if amount == 0 {
		amount = u.opts.DefaultAmount
		if planID > 0 {
			plan, err := u.Plans.FindByID(ctx, repository.NoTX, planID)
			if err != nil {
				return nil, fmt.Errorf("find plan %d: %w", planID, err)
			}
			amount = plan.Price
		}
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("S%dT%d", in.UserID, u.now().Unix())
	}
	returnURL := in.ReturnURL
	if returnURL == "" {
		returnURL = u.opts.ReturnURL
	}

	ctx = logging.WithBuyOrder(logging.WithUserID(ctx, in.UserID), buyOrder)
	l := logging.With(ctx, u.log)

	checkout, err := u.Gateway.CreateTransaction(ctx, adapter.CreateRequest{
		Amount:    amount,
		BuyOrder:  buyOrder,
		SessionID: sessionID,
		ReturnURL: returnURL,
	})
	if err != nil {
		l.Error().Err(err).Int64("amount", amount).Msg("gateway create transaction failed")
		return nil, err
	}
	checkout.BuyOrder = buyOrder

	l.Info().
		Str("state", string(model.StateInitiated)).
		Int64("amount", amount).
		Str("session_id", sessionID).
		Msg("checkout initiated")
	return checkout, nil
}

func (u *checkoutUC) HandleReturn(ctx context.Context, p model.ReturnParams) ReturnResult {
	defer logging.TraceDuration(u.log, "CheckoutUC.HandleReturn")()

	// Only a lone token_ws is a confirmable return; everything else is the
	// buyer leaving the payment form.
	if p.TokenWS == "" || p.TBKToken != "" {
		return u.finish(ctx, "", model.Outcome{State: model.StateAborted, BuyOrder: p.TBKBuyOrder})
	}
	token := p.TokenWS

	if rep, proceed := u.claim(ctx, token); !proceed {
		if rep == nil {
			out := model.Outcome{State: model.StateFailed, Err: domain.ErrCallbackInFlight}
			res := ReturnResult{Outcome: out, Report: u.Reporter.Report(out)}
			u.logOutcome(ctx, res)
			return res
		}
		out := model.Outcome{State: stateOf(*rep), BuyOrder: rep.BuyOrder, Amount: rep.Amount, Duplicate: true}
		res := ReturnResult{Outcome: out, Report: *rep, Cached: true}
		u.logOutcome(ctx, res)
		return res
	}

	// From here on money may move, so the buyer closing the connection must
	// not cancel the confirm or the commit.
	ctx = context.WithoutCancel(ctx)
	out := u.confirmAndCommit(ctx, token)
	return u.finish(ctx, token, out)
}

// claim returns proceed=true when this delivery owns the token. Otherwise it
// returns the report produced by the owner, or nil if none arrived in time.
func (u *checkoutUC) claim(ctx context.Context, token string) (*model.Report, bool) {
	if u.Guard == nil {
		return nil, true
	}
	l := logging.With(ctx, u.log)
	if rep, err := u.Guard.Outcome(ctx, token); err == nil && rep != nil {
		return rep, false
	}
	ok, err := u.Guard.Claim(ctx, token)
	if err != nil {
		l.Warn().Err(err).Msg("callback guard unavailable; relying on reference uniqueness")
		return nil, true
	}
	if ok {
		return nil, true
	}

	wait := time.NewTimer(u.opts.DuplicateWait)
	defer wait.Stop()
	tick := time.NewTicker(u.opts.PollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-wait.C:
			return nil, false
		case <-tick.C:
			if rep, err := u.Guard.Outcome(ctx, token); err == nil && rep != nil {
				return rep, false
			}
		}
	}
}

func (u *checkoutUC) confirmAndCommit(ctx context.Context, token string) model.Outcome {
	l := logging.With(ctx, u.log)
	l.Debug().Str("state", string(model.StateConfirming)).Str("token", logging.Redact(token, false)).Msg("confirming transaction")

	conf, err := u.Gateway.ConfirmTransaction(ctx, token)
	if err != nil {
		if out, ok := u.alreadyCommitted(ctx, token); ok {
			l.Info().Err(err).Str("buy_order", out.BuyOrder).Msg("confirm refused for a token committed earlier")
			return out
		}
		u.recordIncident(ctx, model.IncidentConfirmUnknown, "", token, 0, err)
		return model.Outcome{State: model.StateFailed, Err: err}
	}
	if !conf.Approved {
		return model.Outcome{
			State:    model.StateFailed,
			BuyOrder: conf.BuyOrder,
			Amount:   conf.Amount,
			Err:      fmt.Errorf("%w: response code %d status %s", domain.ErrPaymentDeclined, conf.ResponseCode, conf.Status),
		}
	}

	out := u.commit(ctx, token, conf)
	if out.State == model.StateFailed {
		out.PostPayment = true
		u.recordIncident(ctx, model.IncidentFailedPostPayment, conf.BuyOrder, token, conf.Amount, out.Err)
	}
	return out
}

// alreadyCommitted reports whether a token whose confirm was refused belongs
// to a payment this service has already committed. It only reads the gateway
// status; the confirm itself is never retried.
func (u *checkoutUC) alreadyCommitted(ctx context.Context, token string) (model.Outcome, bool) {
	st, err := u.Gateway.TransactionStatus(ctx, token)
	if err != nil || !st.Approved {
		return model.Outcome{}, false
	}
	ref, err := reference.Decode(st.BuyOrder)
	if err != nil {
		return model.Outcome{}, false
	}
	stored, err := committedToken(ctx, u.Orders, u.Subs, repository.NoTX, ref)
	if err != nil || stored != token {
		return model.Outcome{}, false
	}
	return model.Outcome{State: model.StateCommitted, BuyOrder: st.BuyOrder, Amount: st.Amount, Duplicate: true}, true
}

// committedToken returns the token stored with the order or subscription
// committed for ref, or domain.ErrNotFound.
func committedToken(ctx context.Context, orders repository.OrderRepository, subs repository.SubscriptionRepository, tx repository.Tx, ref reference.PurchaseReference) (string, error) {
	if ref.Kind() == reference.KindPlan {
		return subs.TokenByBuyOrder(ctx, tx, ref.String())
	}
	return orders.TokenByBuyOrder(ctx, tx, ref.String())
}

// checkUncommitted fails with ErrDuplicateReference when the same payment
// already committed ref, and with ErrReferenceReused when another one did.
func checkUncommitted(ctx context.Context, orders repository.OrderRepository, subs repository.SubscriptionRepository, tx repository.Tx, ref reference.PurchaseReference, token string) error {
	stored, err := committedToken(ctx, orders, subs, tx, ref)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case stored == token:
		return domain.ErrDuplicateReference
	default:
		return fmt.Errorf("%s: %w", ref, domain.ErrReferenceReused)
	}
}

// commit materializes an approved payment in one transaction.
func (u *checkoutUC) commit(ctx context.Context, token string, conf *model.Confirmation) model.Outcome {
	out := model.Outcome{BuyOrder: conf.BuyOrder, Amount: conf.Amount}

	ref, err := reference.Decode(conf.BuyOrder)
	if err != nil {
		out.State = model.StateFailed
		out.Err = err
		return out
	}

	ctx = logging.WithBuyOrder(logging.WithUserID(ctx, ref.Owner()), conf.BuyOrder)
	ctx, cancel := context.WithTimeout(ctx, u.opts.CommitTimeout)
	defer cancel()

	var ev *adapter.CheckoutEvent
	start := time.Now()
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.TM.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		var err error
		switch r := ref.(type) {
		case reference.PlanPurchase:
			ev, err = u.commitPlan(ctx, tx, r, token, conf)
		case reference.CartPurchase:
			ev, err = u.commitCart(ctx, tx, r, token, conf)
		default:
			err = fmt.Errorf("unsupported reference kind %s: %w", ref.Kind(), domain.ErrDecode)
		}
		return err
	})

	switch {
	case errors.Is(err, domain.ErrDuplicateReference):
		metrics.ObserveCommit("duplicate", time.Since(start))
		out.State = model.StateCommitted
		out.Duplicate = true
	case err != nil:
		metrics.ObserveCommit("failed", time.Since(start))
		if errors.Is(err, domain.ErrInsufficientStock) {
			metrics.IncStockConflict()
		}
		out.State = model.StateFailed
		out.Err = err
	default:
		metrics.ObserveCommit("committed", time.Since(start))
		out.State = model.StateCommitted
		u.publish(ctx, ev)
	}
	return out
}

func (u *checkoutUC) commitPlan(ctx context.Context, tx repository.Tx, r reference.PlanPurchase, token string, conf *model.Confirmation) (*adapter.CheckoutEvent, error) {
	if err := u.Subs.LockUser(ctx, tx, r.UserID); err != nil {
		return nil, err
	}
	if err := checkUncommitted(ctx, u.Orders, u.Subs, tx, r, token); err != nil {
		return nil, err
	}

	user, err := u.Users.FindByID(ctx, tx, r.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", r.UserID, err)
	}
	plan, err := u.Plans.FindByID(ctx, tx, r.PlanID)
	if err != nil {
		return nil, fmt.Errorf("find plan %d: %w", r.PlanID, err)
	}
	if err := u.checkAmount(ctx, plan.Price, conf.Amount); err != nil {
		return nil, err
	}

	n, err := u.Subs.DeactivateActive(ctx, tx, user.ID)
	if err != nil {
		return nil, err
	}
	sub, err := model.NewSubscription(ulid.Make().String(), user.ID, plan, conf.BuyOrder, u.now())
	if err != nil {
		return nil, err
	}
	sub.Token = token
	if err := u.Subs.Create(ctx, tx, sub); err != nil {
		return nil, err
	}

	logging.With(ctx, u.log).Info().
		Int64("plan_id", plan.ID).
		Int64("deactivated", n).
		Time("expires_at", sub.ExpiresAt).
		Msg("subscription activated")

	return &adapter.CheckoutEvent{
		Type:           adapter.EventSubscriptionActivated,
		BuyOrder:       conf.BuyOrder,
		UserID:         user.ID,
		Amount:         conf.Amount,
		SubscriptionID: sub.ID,
		OccurredAt:     sub.CreatedAt,
	}, nil
}

func (u *checkoutUC) commitCart(ctx context.Context, tx repository.Tx, r reference.CartPurchase, token string, conf *model.Confirmation) (*adapter.CheckoutEvent, error) {
	user, err := u.Users.FindByID(ctx, tx, r.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", r.UserID, err)
	}
	// Locks the cart row: concurrent deliveries for this user queue here.
	cart, err := u.Carts.GetOrCreate(ctx, tx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := checkUncommitted(ctx, u.Orders, u.Subs, tx, r, token); err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCartPayment
	}

	order, err := model.NewPaidOrder(ulid.Make().String(), user.ID, conf.BuyOrder, conf.Amount, u.now())
	if err != nil {
		return nil, err
	}
	order.Token = token
	if err := u.Orders.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	// Lock products in id order so overlapping carts cannot deadlock.
	lines := append([]model.CartLine(nil), cart.Lines...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	var computed int64
	for _, cl := range lines {
		p, err := u.Inventory.LockAndDecrement(ctx, tx, cl.ProductID, cl.Quantity)
		if err != nil {
			return nil, err
		}
		line := model.OrderLine{
			ID:        ulid.Make().String(),
			OrderID:   order.ID,
			ProductID: cl.ProductID,
			Quantity:  cl.Quantity,
			UnitPrice: p.Price,
		}
		if err := u.Orders.AddLine(ctx, tx, &line); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
		computed += line.Subtotal()
	}
	if err := u.checkAmount(ctx, computed, conf.Amount); err != nil {
		return nil, err
	}
	if err := u.Carts.Clear(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	logging.With(ctx, u.log).Info().
		Str("order_id", order.ID).
		Int("lines", len(order.Lines)).
		Int64("total", order.Total).
		Msg("order committed")

	return &adapter.CheckoutEvent{
		Type:       adapter.EventOrderPaid,
		BuyOrder:   conf.BuyOrder,
		UserID:     user.ID,
		Amount:     order.Total,
		OrderID:    order.ID,
		OccurredAt: order.CreatedAt,
	}, nil
}

// checkAmount applies the amount policy to the local total and the amount the
// gateway confirmed.
func (u *checkoutUC) checkAmount(ctx context.Context, local, confirmed int64) error {
	if local == confirmed {
		return nil
	}
	metrics.IncAmountMismatch()
	logging.With(ctx, u.log).Warn().
		Int64("local_total", local).
		Int64("confirmed_amount", confirmed).
		Str("policy", string(u.opts.AmountPolicy)).
		Msg("confirmed amount differs from purchase total")
	if u.opts.AmountPolicy == AmountRejectMismatch {
		return fmt.Errorf("local total %d, confirmed %d: %w", local, confirmed, domain.ErrAmountMismatch)
	}
	return nil
}

func (u *checkoutUC) publish(ctx context.Context, ev *adapter.CheckoutEvent) {
	if u.Events == nil || ev == nil {
		return
	}
	if err := u.Events.Publish(ctx, *ev); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("event", ev.Type).Msg("publish checkout event failed")
	}
}

// recordIncident persists a callback that needs manual follow-up. It runs
// outside the commit transaction so the record survives its rollback.
func (u *checkoutUC) recordIncident(ctx context.Context, kind model.IncidentKind, buyOrder, token string, amount int64, cause error) {
	metrics.IncIncident(string(kind))
	l := logging.With(ctx, u.log)
	l.Error().
		Err(cause).
		Str("incident", string(kind)).
		Str("token", logging.Redact(token, false)).
		Int64("amount", amount).
		Msg("payment requires manual reconciliation")

	if u.Incidents == nil {
		return
	}
	now := u.now()
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	inc := &model.Incident{
		ID:        ulid.Make().String(),
		Kind:      kind,
		BuyOrder:  buyOrder,
		Token:     token,
		Amount:    amount,
		Reason:    reason,
		Status:    model.IncidentOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.Incidents.Create(ctx, repository.NoTX, inc); err != nil {
		// Last line of defence: the structured log above carries everything needed.
		l.Error().Err(err).Str("incident_id", inc.ID).Msg("could not persist incident")
	}
}

func (u *checkoutUC) finish(ctx context.Context, token string, out model.Outcome) ReturnResult {
	res := ReturnResult{Outcome: out, Report: u.Reporter.Report(out)}
	if token != "" && u.Guard != nil {
		if err := u.Guard.Remember(ctx, token, res.Report); err != nil {
			logging.With(ctx, u.log).Warn().Err(err).Msg("could not cache callback outcome")
		}
	}
	u.logOutcome(ctx, res)
	return res
}

func (u *checkoutUC) logOutcome(ctx context.Context, res ReturnResult) {
	metrics.IncCheckoutOutcome(string(res.Report.Status))
	l := logging.With(ctx, u.log)
	ev := l.Info()
	if res.Report.Status == model.ReportFailedPostPayment {
		ev = l.Error()
	} else if res.Outcome.State == model.StateFailed {
		ev = l.Warn()
	}
	if res.Outcome.Err != nil {
		ev = ev.Err(res.Outcome.Err)
	}
	ev.Str("state", string(res.Outcome.State)).
		Str("status", string(res.Report.Status)).
		Str("buy_order", res.Report.BuyOrder).
		Int64("amount", res.Report.Amount).
		Bool("duplicate", res.Outcome.Duplicate).
		Bool("cached", res.Cached).
		Msg("checkout callback finished")
}
