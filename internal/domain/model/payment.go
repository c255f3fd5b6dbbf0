package model

import "pi-subscription-backend/internal/domain"

type PaymentStatus string

const (
	PaymentStatusCreated           PaymentStatus = "created"
	PaymentStatusPendingApproval   PaymentStatus = "pending_approval"
	PaymentStatusApproved          PaymentStatus = "approved"
	PaymentStatusPendingCompletion PaymentStatus = "pending_completion"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusErrored           PaymentStatus = "errored"
)

// PaymentMetadata is attached by the client at payment creation and round-trips
// through the payment network unmodified. It is the sole source of truth for
// what the payment was for.
type PaymentMetadata struct {
	AccountID string
	Plan      string
	Period    string
}

// Validate distinguishes an integration bug (client created a payment without
// subscription intent) from ordinary user-facing failures.
func (m PaymentMetadata) Validate() error {
	if m.AccountID == "" || m.Plan == "" {
		return domain.ErrMalformedMetadata
	}
	return nil
}

// PlanPeriod parses the metadata strings into typed values.
func (m PaymentMetadata) PlanPeriod() (Plan, Period, error) {
	plan, err := ParsePlan(m.Plan)
	if err != nil {
		return "", "", domain.ErrMalformedMetadata
	}
	period, err := ParsePeriod(m.Period)
	if err != nil {
		return "", "", domain.ErrMalformedMetadata
	}
	return plan, period, nil
}

// Payment is the backend's mirrored view of a network-owned payment. The
// network assigns the id and drives all state transitions; we only react to
// its callbacks.
type Payment struct {
	ID       string
	Amount   float64
	Memo     string
	Metadata PaymentMetadata
	TxID     string
	Status   PaymentStatus
}
