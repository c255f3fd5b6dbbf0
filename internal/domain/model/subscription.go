package model

import (
	"time"

	"pi-subscription-backend/internal/domain"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
	PlanPro     Plan = "pro"
)

func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanFree, PlanPremium, PlanPro:
		return Plan(s), nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

type Period string

const (
	// PeriodNone is the stored zero value for free accounts (NULL in the DB).
	PeriodNone    Period = ""
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodMonthly, PeriodYearly:
		return Period(s), nil
	case PeriodNone:
		// Absent period defaults to monthly, matching what the client attaches.
		return PeriodMonthly, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

// ExpiryFrom computes the subscription expiry for a payment completed at now.
func ExpiryFrom(now time.Time, period Period) time.Time {
	if period == PeriodYearly {
		return now.AddDate(1, 0, 0)
	}
	return now.AddDate(0, 1, 0)
}

// Subscription is the single mutable ledger row per account. Invariant:
// plan != free <=> ExpiresAt != nil.
type Subscription struct {
	AccountID  string
	Plan       Plan
	Period     Period
	ExpiresAt  *time.Time
	HasPremium bool
	UpdatedAt  time.Time
}

// NewFreeSubscription is the state every account starts in.
func NewFreeSubscription(accountID string) *Subscription {
	return &Subscription{
		AccountID:  accountID,
		Plan:       PlanFree,
		Period:     PeriodNone,
		ExpiresAt:  nil,
		HasPremium: false,
		UpdatedAt:  time.Now(),
	}
}

// Apply mutates the row for a completed payment.
func (s *Subscription) Apply(plan Plan, period Period, expiresAt time.Time) {
	s.Plan = plan
	s.Period = period
	s.ExpiresAt = &expiresAt
	s.HasPremium = plan != PlanFree
	s.UpdatedAt = time.Now()
}

// Downgrade resets the row to the free state (lazy expiry path).
func (s *Subscription) Downgrade() {
	s.Plan = PlanFree
	s.Period = PeriodNone
	s.ExpiresAt = nil
	s.HasPremium = false
	s.UpdatedAt = time.Now()
}

// Expired reports whether the entitlement lapsed before now.
func (s *Subscription) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// Validate checks the plan/expiry invariant.
func (s *Subscription) Validate() error {
	if s.AccountID == "" {
		return domain.ErrInvalidArgument
	}
	if s.Plan == PlanFree && (s.ExpiresAt != nil || s.Period != PeriodNone) {
		return domain.ErrInvalidArgument
	}
	if s.Plan != PlanFree && s.ExpiresAt == nil {
		return domain.ErrInvalidArgument
	}
	return nil
}
