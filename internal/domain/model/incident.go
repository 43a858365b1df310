package model

import "time"

type IncidentKind string

const (
	// Gateway approved the payment but the local commit did not happen.
	IncidentFailedPostPayment IncidentKind = "failed_post_payment"
	// The confirm call failed; the gateway may or may not have captured money.
	IncidentConfirmUnknown IncidentKind = "confirm_unknown"
)

type IncidentStatus string

const (
	IncidentOpen     IncidentStatus = "open"
	IncidentNotified IncidentStatus = "notified"
	IncidentResolved IncidentStatus = "resolved"
)

// Incident is a durable record of a callback that needs operator follow-up.
type Incident struct {
	ID        string
	Kind      IncidentKind
	BuyOrder  string
	Token     string
	Amount    int64
	Reason    string
	Status    IncidentStatus
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
