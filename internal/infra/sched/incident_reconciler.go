package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"webpay-checkout/internal/usecase"
)

// IncidentReconciler periodically sweeps open reconciliation incidents: it
// settles confirm_unknown ones against the gateway and alerts operators about
// payments that were captured but never committed locally.
type IncidentReconciler struct {
	uc       usecase.IncidentUseCase
	interval time.Duration
	batch    int
	log      *zerolog.Logger
}

func NewIncidentReconciler(uc usecase.IncidentUseCase, interval time.Duration, batch int, logger *zerolog.Logger) *IncidentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &IncidentReconciler{uc: uc, interval: interval, batch: batch, log: logger}
}

// Start blocks until ctx is cancelled. The first sweep runs immediately.
func (w *IncidentReconciler) Start(ctx context.Context) {
	w.tick(ctx)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *IncidentReconciler) tick(ctx context.Context) {
	st, err := w.uc.Sweep(ctx, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("incident-reconciler: sweep failed")
		return
	}
	if st == (usecase.SweepStats{}) {
		return
	}
	w.log.Info().
		Int("escalated", st.Escalated).
		Int("resolved", st.Resolved).
		Int("notified", st.Notified).
		Int("failed", st.Failed).
		Msg("incident-reconciler: sweep done")
}
