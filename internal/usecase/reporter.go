package usecase

import (
	"net/url"
	"strconv"

	"webpay-checkout/internal/domain/model"
)

// OutcomeReporter turns terminal checkout outcomes into the status signal the
// frontend renders.
type OutcomeReporter struct {
	finalURL *url.URL
}

func NewOutcomeReporter(finalURL string) (*OutcomeReporter, error) {
	u, err := url.Parse(finalURL)
	if err != nil {
		return nil, err
	}
	return &OutcomeReporter{finalURL: u}, nil
}

// Report maps out to a Report. Non-terminal states report as failed.
func (r *OutcomeReporter) Report(out model.Outcome) model.Report {
	rep := model.Report{Amount: out.Amount, BuyOrder: out.BuyOrder}
	switch {
	case out.State == model.StateCommitted:
		rep.Status = model.ReportSuccess
	case out.State == model.StateAborted:
		rep.Status = model.ReportAborted
		rep.Amount = 0
	case out.PostPayment:
		rep.Status = model.ReportFailedPostPayment
	default:
		rep.Status = model.ReportFailed
	}
	return rep
}

// RedirectURL appends status, amount and buy_order to the final URL, keeping
// any query it already has.
func (r *OutcomeReporter) RedirectURL(rep model.Report) string {
	u := *r.finalURL
	q := u.Query()
	q.Set("status", string(rep.Status))
	q.Set("amount", strconv.FormatInt(rep.Amount, 10))
	q.Set("buy_order", rep.BuyOrder)
	u.RawQuery = q.Encode()
	return u.String()
}

// stateOf recovers the terminal state of a stored report.
func stateOf(rep model.Report) model.CheckoutState {
	switch rep.Status {
	case model.ReportSuccess:
		return model.StateCommitted
	case model.ReportAborted:
		return model.StateAborted
	default:
		return model.StateFailed
	}
}
