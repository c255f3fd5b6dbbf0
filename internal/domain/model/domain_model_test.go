//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"pi-subscription-backend/internal/domain"
)

func TestExternalIdentity_ContactKey(t *testing.T) {
	ext := ExternalIdentity{UID: "a1b2c3", Username: "pioneer"}
	if got := ext.ContactKey(); got != "a1b2c3@pi.network" {
		t.Errorf("ContactKey() = %q, want a1b2c3@pi.network", got)
	}
}

func TestExternalIdentity_Validate(t *testing.T) {
	if err := (ExternalIdentity{UID: "a", Username: "b"}).Validate(); err != nil {
		t.Errorf("valid identity rejected: %v", err)
	}
	if err := (ExternalIdentity{Username: "b"}).Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Error("missing uid must be rejected")
	}
}

func TestParsePlan(t *testing.T) {
	for _, s := range []string{"free", "premium", "pro"} {
		if _, err := ParsePlan(s); err != nil {
			t.Errorf("ParsePlan(%q) failed: %v", s, err)
		}
	}
	if _, err := ParsePlan("platinum"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Error("unknown plan must be rejected")
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod(""); err != nil || p != PeriodMonthly {
		t.Errorf("empty period should default to monthly, got %q (%v)", p, err)
	}
	if p, err := ParsePeriod("yearly"); err != nil || p != PeriodYearly {
		t.Errorf("ParsePeriod(yearly) = %q (%v)", p, err)
	}
	if _, err := ParsePeriod("weekly"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Error("unknown period must be rejected")
	}
}

func TestExpiryFrom(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := ExpiryFrom(now, PeriodMonthly); !got.Equal(now.AddDate(0, 1, 0)) {
		t.Errorf("monthly expiry = %v", got)
	}
	if got := ExpiryFrom(now, PeriodYearly); !got.Equal(now.AddDate(1, 0, 0)) {
		t.Errorf("yearly expiry = %v", got)
	}
}

func TestSubscription_Validate(t *testing.T) {
	exp := time.Now().Add(time.Hour)

	free := NewFreeSubscription("acc-1")
	if err := free.Validate(); err != nil {
		t.Errorf("fresh free subscription invalid: %v", err)
	}

	paid := &Subscription{AccountID: "acc-1", Plan: PlanPremium, Period: PeriodMonthly, ExpiresAt: &exp, HasPremium: true}
	if err := paid.Validate(); err != nil {
		t.Errorf("paid subscription invalid: %v", err)
	}

	// plan and expiry must move together
	if err := (&Subscription{AccountID: "acc-1", Plan: PlanPremium}).Validate(); err == nil {
		t.Error("paid plan without expiry must be invalid")
	}
	if err := (&Subscription{AccountID: "acc-1", Plan: PlanFree, ExpiresAt: &exp}).Validate(); err == nil {
		t.Error("free plan with expiry must be invalid")
	}
}

func TestSubscription_ExpiredAndDowngrade(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	s := &Subscription{AccountID: "acc-1", Plan: PlanPro, Period: PeriodYearly, ExpiresAt: &past, HasPremium: true}

	if !s.Expired(now) {
		t.Error("subscription past its expiry must report expired")
	}
	s.Downgrade()
	if s.Plan != PlanFree || s.ExpiresAt != nil || s.HasPremium || s.Period != PeriodNone {
		t.Errorf("downgrade left residue: %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("downgraded state invalid: %v", err)
	}
	if s.Expired(now) {
		t.Error("free subscription never expires")
	}
}

func TestPaymentMetadata(t *testing.T) {
	md := PaymentMetadata{AccountID: "acc-1", Plan: "premium", Period: "monthly"}
	if err := md.Validate(); err != nil {
		t.Errorf("valid metadata rejected: %v", err)
	}
	plan, period, err := md.PlanPeriod()
	if err != nil || plan != PlanPremium || period != PeriodMonthly {
		t.Errorf("PlanPeriod() = %v %v %v", plan, period, err)
	}

	if err := (PaymentMetadata{Plan: "premium"}).Validate(); !errors.Is(err, domain.ErrMalformedMetadata) {
		t.Error("metadata without account id must be malformed")
	}
	if _, _, err := (PaymentMetadata{AccountID: "a", Plan: "platinum"}).PlanPeriod(); !errors.Is(err, domain.ErrMalformedMetadata) {
		t.Error("unknown plan must be malformed")
	}
}

func TestAccount_Relink(t *testing.T) {
	ext := ExternalIdentity{UID: "uid-1", Username: "pioneer"}

	a := &Account{ID: "acc-1", Username: "pioneer"}
	if err := a.Relink(ext); err != nil {
		t.Fatalf("relink of an unlinked account failed: %v", err)
	}
	if a.ContactKey != "uid-1@pi.network" || a.PiUID != "uid-1" {
		t.Errorf("relink result: %+v", a)
	}

	other := ExternalIdentity{UID: "uid-2", Username: "pioneer"}
	if err := a.Relink(other); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Error("relinking to a different wallet must fail")
	}
}

func TestNewTransactionRecord(t *testing.T) {
	exp := time.Now().AddDate(0, 1, 0)
	if _, err := NewTransactionRecord("rec-1", "acc-1", PlanPremium, PeriodMonthly, 10, "pay-1", "tx-1", exp); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}
	if _, err := NewTransactionRecord("rec-1", "acc-1", PlanFree, PeriodMonthly, 0, "pay-1", "tx-1", exp); err == nil {
		t.Error("free plan must never be recorded as a purchase")
	}
	if _, err := NewTransactionRecord("rec-1", "acc-1", PlanPremium, PeriodMonthly, 10, "", "tx-1", exp); err == nil {
		t.Error("missing payment id must be rejected")
	}
}
