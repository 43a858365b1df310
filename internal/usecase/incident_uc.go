package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"webpay-checkout/internal/domain"
	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/adapter"
	"webpay-checkout/internal/domain/ports/repository"
	"webpay-checkout/internal/domain/reference"
	"webpay-checkout/internal/infra/logging"
)

// Compile-time check
var _ IncidentUseCase = (*incidentUC)(nil)

// IncidentUseCase works the reconciliation backlog left by failed callbacks.
type IncidentUseCase interface {
	// Sweep resolves what the gateway can answer and alerts operators about the rest.
	Sweep(ctx context.Context, limit int) (SweepStats, error)
}

type SweepStats struct {
	Escalated int // confirm_unknown found captured at the gateway
	Resolved  int
	Notified  int
	Failed    int
}

type incidentUC struct {
	incidents repository.IncidentRepository
	orders    repository.OrderRepository
	subs      repository.SubscriptionRepository
	gateway   adapter.PaymentGateway
	notifier  adapter.IncidentNotifier
	log       *zerolog.Logger
	now       func() time.Time
}

func NewIncidentUseCase(incidents repository.IncidentRepository, orders repository.OrderRepository, subs repository.SubscriptionRepository, gateway adapter.PaymentGateway, notifier adapter.IncidentNotifier, logger *zerolog.Logger) *incidentUC {
	return &incidentUC{
		incidents: incidents,
		orders:    orders,
		subs:      subs,
		gateway:   gateway,
		notifier:  notifier,
		log:       logger,
		now:       time.Now,
	}
}

func (u *incidentUC) Sweep(ctx context.Context, limit int) (SweepStats, error) {
	defer logging.TraceDuration(u.log, "IncidentUC.Sweep")()

	var st SweepStats
	open, err := u.incidents.ListByStatus(ctx, repository.NoTX, model.IncidentOpen, limit)
	if err != nil {
		return st, err
	}
	for _, inc := range open {
		if inc.Kind == model.IncidentConfirmUnknown {
			u.settleUnknown(ctx, inc, &st)
		}
		if inc.Kind == model.IncidentFailedPostPayment && inc.Status == model.IncidentOpen {
			u.notify(ctx, inc, &st)
		}
	}
	return st, nil
}

// settleUnknown asks the gateway what happened to a transaction whose confirm
// call failed. A captured payment without a local record becomes a
// failed_post_payment incident; anything else is closed.
func (u *incidentUC) settleUnknown(ctx context.Context, inc *model.Incident, st *SweepStats) {
	l := u.log.With().Str("incident_id", inc.ID).Logger()

	conf, err := u.gateway.TransactionStatus(ctx, inc.Token)
	if err != nil {
		l.Warn().Err(err).Msg("gateway status lookup failed")
		u.bump(ctx, inc, st)
		return
	}

	inc.BuyOrder = conf.BuyOrder
	inc.Amount = conf.Amount
	inc.UpdatedAt = u.now()

	if !conf.Approved {
		inc.Status = model.IncidentResolved
		inc.Reason = fmt.Sprintf("%s; gateway status %s, response code %d", inc.Reason, conf.Status, conf.ResponseCode)
		u.save(ctx, inc)
		st.Resolved++
		return
	}

	committed, err := u.committedLocally(ctx, conf.BuyOrder, inc.Token)
	if err != nil {
		l.Warn().Err(err).Msg("local lookup failed")
		u.bump(ctx, inc, st)
		return
	}
	if committed {
		inc.Status = model.IncidentResolved
		inc.Reason = inc.Reason + "; captured and committed by a later delivery"
		u.save(ctx, inc)
		st.Resolved++
		return
	}

	inc.Kind = model.IncidentFailedPostPayment
	inc.Reason = inc.Reason + "; gateway reports the payment as captured"
	u.save(ctx, inc)
	st.Escalated++
	l.Error().Str("buy_order", inc.BuyOrder).Int64("amount", inc.Amount).Msg("captured payment without local record")
}

// committedLocally is true only when the reference was committed by this very
// token. A record left by a different payment does not settle this one.
func (u *incidentUC) committedLocally(ctx context.Context, buyOrder, token string) (bool, error) {
	ref, err := reference.Decode(buyOrder)
	if err != nil {
		// Nothing local can ever match an undecodable reference.
		return false, nil
	}
	stored, err := committedToken(ctx, u.orders, u.subs, repository.NoTX, ref)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == token, nil
}

func (u *incidentUC) notify(ctx context.Context, inc *model.Incident, st *SweepStats) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, inc); err != nil {
		u.log.Warn().Err(err).Str("incident_id", inc.ID).Msg("incident alert failed")
		u.bump(ctx, inc, st)
		return
	}
	inc.Status = model.IncidentNotified
	inc.UpdatedAt = u.now()
	u.save(ctx, inc)
	st.Notified++
}

func (u *incidentUC) bump(ctx context.Context, inc *model.Incident, st *SweepStats) {
	inc.Attempts++
	inc.UpdatedAt = u.now()
	u.save(ctx, inc)
	st.Failed++
}

func (u *incidentUC) save(ctx context.Context, inc *model.Incident) {
	if err := u.incidents.Update(ctx, repository.NoTX, inc); err != nil {
		u.log.Error().Err(err).Str("incident_id", inc.ID).Msg("update incident failed")
	}
}
