//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
)

// --- Stub use cases ---

type stubIdentityUC struct {
	account *model.Account
	token   string
	err     error
}

func (s *stubIdentityUC) Resolve(ctx context.Context, accessToken string) (*model.Account, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.account, s.token, nil
}

type stubApprovalUC struct {
	payment *model.Payment
	err     error
}

func (s *stubApprovalUC) Approve(ctx context.Context, paymentID string) (*model.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.payment, nil
}

type stubCompletionUC struct {
	state *model.Subscription
	err   error
}

func (s *stubCompletionUC) Complete(ctx context.Context, paymentID, txid string) (*model.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.state, nil
}

type stubLedgerUC struct {
	state   *model.Subscription
	history []*model.TransactionRecord
	err     error
}

func (s *stubLedgerUC) GetState(ctx context.Context, accountID string) (*model.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.state, nil
}

func (s *stubLedgerUC) History(ctx context.Context, accountID string, limit int) ([]*model.TransactionRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

func (s *stubLedgerUC) SweepExpired(ctx context.Context, limit int) (int, error) { return 0, s.err }

type serverStubs struct {
	identity   *stubIdentityUC
	approval   *stubApprovalUC
	completion *stubCompletionUC
	ledger     *stubLedgerUC
}

func newTestServer(stubs serverStubs) http.Handler {
	if stubs.identity == nil {
		stubs.identity = &stubIdentityUC{}
	}
	if stubs.approval == nil {
		stubs.approval = &stubApprovalUC{}
	}
	if stubs.completion == nil {
		stubs.completion = &stubCompletionUC{}
	}
	if stubs.ledger == nil {
		stubs.ledger = &stubLedgerUC{}
	}
	logger := zerolog.New(io.Discard)
	return NewServer(stubs.identity, stubs.approval, stubs.completion, stubs.ledger, &logger).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleIdentityVerify(t *testing.T) {
	t.Run("returns the account and session token", func(t *testing.T) {
		h := newTestServer(serverStubs{identity: &stubIdentityUC{
			account: &model.Account{ID: "acc-1", Username: "pioneer"},
			token:   "jwt-token",
		}})

		rec := doJSON(t, h, http.MethodPost, "/identity/verify", `{"accessToken":"tok"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		var out identityVerifyResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		if !out.Success || out.Account.ID != "acc-1" || out.SessionToken != "jwt-token" {
			t.Errorf("response = %+v", out)
		}
	})

	t.Run("missing token is a 400", func(t *testing.T) {
		h := newTestServer(serverStubs{})
		rec := doJSON(t, h, http.MethodPost, "/identity/verify", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("invalid token maps to 400 with an error body", func(t *testing.T) {
		h := newTestServer(serverStubs{identity: &stubIdentityUC{err: domain.ErrInvalidToken}})
		rec := doJSON(t, h, http.MethodPost, "/identity/verify", `{"accessToken":"stale"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		var out errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.Error == "" {
			t.Errorf("body = %s (err %v)", rec.Body, err)
		}
	})
}

func TestHandlePaymentApprove(t *testing.T) {
	t.Run("success echoes the network's payment view", func(t *testing.T) {
		h := newTestServer(serverStubs{approval: &stubApprovalUC{
			payment: &model.Payment{ID: "pay-1", Amount: 10, Status: model.PaymentStatusApproved},
		}})
		rec := doJSON(t, h, http.MethodPost, "/payment/approve", `{"paymentId":"pay-1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		var out paymentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		if out.Payment.ID != "pay-1" || out.Payment.Status != "approved" {
			t.Errorf("payment = %+v", out.Payment)
		}
	})

	t.Run("rejection maps to 400", func(t *testing.T) {
		h := newTestServer(serverStubs{approval: &stubApprovalUC{err: domain.ErrApprovalRejected}})
		rec := doJSON(t, h, http.MethodPost, "/payment/approve", `{"paymentId":"pay-1"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestHandlePaymentComplete(t *testing.T) {
	exp := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success includes the resulting subscription", func(t *testing.T) {
		h := newTestServer(serverStubs{completion: &stubCompletionUC{
			state: &model.Subscription{AccountID: "acc-1", Plan: model.PlanPremium, Period: model.PeriodMonthly, ExpiresAt: &exp, HasPremium: true},
		}})
		rec := doJSON(t, h, http.MethodPost, "/payment/complete", `{"paymentId":"pay-1","txid":"tx-1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		var out completionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		if out.Payment.Status != "completed" || out.Payment.TxID != "tx-1" {
			t.Errorf("payment = %+v", out.Payment)
		}
		if out.Subscription.Plan != "premium" || out.Subscription.ExpiresAt == nil {
			t.Errorf("subscription = %+v", out.Subscription)
		}
	})

	t.Run("missing txid is a 400", func(t *testing.T) {
		h := newTestServer(serverStubs{})
		rec := doJSON(t, h, http.MethodPost, "/payment/complete", `{"paymentId":"pay-1"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("ledger failure maps to a retryable 400", func(t *testing.T) {
		h := newTestServer(serverStubs{completion: &stubCompletionUC{err: domain.ErrLedgerCommitFailed}})
		rec := doJSON(t, h, http.MethodPost, "/payment/complete", `{"paymentId":"pay-1","txid":"tx-1"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		var out errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || !strings.Contains(out.Error, "retry") {
			t.Errorf("body should steer the caller to retry: %s", rec.Body)
		}
	})
}

func TestHandleSubscriptionGet(t *testing.T) {
	t.Run("returns the ledger state", func(t *testing.T) {
		exp := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
		h := newTestServer(serverStubs{ledger: &stubLedgerUC{
			state: &model.Subscription{AccountID: "acc-1", Plan: model.PlanPro, Period: model.PeriodYearly, ExpiresAt: &exp, HasPremium: true},
		}})
		rec := doJSON(t, h, http.MethodGet, "/subscription/acc-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		var out subscriptionJSON
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		if out.Plan != "pro" || out.Period == nil || *out.Period != "yearly" {
			t.Errorf("subscription = %+v", out)
		}
	})

	t.Run("unknown account is a 404", func(t *testing.T) {
		h := newTestServer(serverStubs{ledger: &stubLedgerUC{err: domain.ErrNotFound}})
		rec := doJSON(t, h, http.MethodGet, "/subscription/ghost", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestHandlePlansList(t *testing.T) {
	h := newTestServer(serverStubs{})
	rec := doJSON(t, h, http.MethodGet, "/plans", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Data []struct {
			Plan      string  `json:"plan"`
			MonthlyPi float64 `json:"monthlyPi"`
			YearlyPi  float64 `json:"yearlyPi"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Data) != 3 {
		t.Fatalf("plans = %+v", out.Data)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(serverStubs{})
	req := httptest.NewRequest(http.MethodOptions, "/payment/approve", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "authorization") {
		t.Errorf("allow-headers = %q", got)
	}
}
