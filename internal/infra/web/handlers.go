package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
)

type identityVerifyRequest struct {
	AccessToken string `json:"accessToken"`
}

type accountJSON struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type identityVerifyResponse struct {
	Success      bool        `json:"success"`
	Account      accountJSON `json:"account"`
	SessionToken string      `json:"sessionToken"`
}

type paymentApproveRequest struct {
	PaymentID string `json:"paymentId"`
}

type paymentCompleteRequest struct {
	PaymentID string `json:"paymentId"`
	TxID      string `json:"txid"`
}

type paymentJSON struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Memo   string  `json:"memo,omitempty"`
	TxID   string  `json:"txid,omitempty"`
	Status string  `json:"status"`
}

type paymentResponse struct {
	Success bool        `json:"success"`
	Payment paymentJSON `json:"payment"`
}

type completionResponse struct {
	Success      bool             `json:"success"`
	Payment      paymentJSON      `json:"payment"`
	Subscription subscriptionJSON `json:"subscription"`
}

type subscriptionJSON struct {
	AccountID  string     `json:"accountId"`
	Plan       string     `json:"plan"`
	Period     *string    `json:"period"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	HasPremium bool       `json:"hasPremium"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIdentityVerify(w http.ResponseWriter, r *http.Request) {
	var req identityVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "access token is required"})
		return
	}

	account, sessionToken, err := s.identityUC.Resolve(r.Context(), req.AccessToken)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, identityVerifyResponse{
		Success:      true,
		Account:      accountJSON{ID: account.ID, Username: account.Username},
		SessionToken: sessionToken,
	})
}

func (s *Server) handlePaymentApprove(w http.ResponseWriter, r *http.Request) {
	var req paymentApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "payment id is required"})
		return
	}

	payment, err := s.approvalUC.Approve(r.Context(), req.PaymentID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentResponse{Success: true, Payment: toPaymentJSON(payment)})
}

func (s *Server) handlePaymentComplete(w http.ResponseWriter, r *http.Request) {
	var req paymentCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentID == "" || req.TxID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "payment id and transaction id are required"})
		return
	}

	state, err := s.completionUC.Complete(r.Context(), req.PaymentID, req.TxID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, completionResponse{
		Success:      true,
		Payment:      paymentJSON{ID: req.PaymentID, TxID: req.TxID, Status: string(model.PaymentStatusCompleted)},
		Subscription: toSubscriptionJSON(state),
	})
}

func (s *Server) handleSubscriptionGet(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	state, err := s.ledgerUC.GetState(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "account not found"})
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionJSON(state))
}

func (s *Server) handleTransactionsList(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.ledgerUC.History(r.Context(), accountID, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	type txJSON struct {
		PaymentID  string    `json:"paymentId"`
		TxID       string    `json:"txid"`
		Plan       string    `json:"plan"`
		Period     string    `json:"period"`
		Amount     float64   `json:"amount"`
		ExpiresAt  time.Time `json:"expiresAt"`
		RecordedAt time.Time `json:"recordedAt"`
	}
	out := make([]txJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, txJSON{
			PaymentID:  rec.PaymentID,
			TxID:       rec.TxID,
			Plan:       string(rec.Plan),
			Period:     string(rec.Period),
			Amount:     rec.Amount,
			ExpiresAt:  rec.ExpiresAt,
			RecordedAt: rec.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Data []txJSON `json:"data"`
	}{Data: out})
}

func (s *Server) handlePlansList(w http.ResponseWriter, r *http.Request) {
	type planJSON struct {
		Plan      string  `json:"plan"`
		MonthlyPi float64 `json:"monthlyPi"`
		YearlyPi  float64 `json:"yearlyPi"`
	}
	pricing := model.DefaultPricing()
	out := make([]planJSON, 0, len(pricing))
	for _, p := range pricing {
		out = append(out, planJSON{Plan: string(p.Plan), MonthlyPi: p.MonthlyPi, YearlyPi: p.YearlyPi})
	}
	writeJSON(w, http.StatusOK, struct {
		Data []planJSON `json:"data"`
	}{Data: out})
}

// writeDomainError maps the error taxonomy to a short human message. Every
// failure on the callback endpoints surfaces as 400 with a JSON error body,
// matching what the paying client expects; the message distinguishes retryable
// upstream trouble from hard rejections.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var msg string
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		msg = "invalid access token"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		msg = "payment network timed out, please retry"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		msg = "payment network unavailable, please retry"
	case errors.Is(err, domain.ErrApprovalRejected):
		msg = "payment could not be approved"
	case errors.Is(err, domain.ErrCompletionRejected):
		msg = "payment could not be completed"
	case errors.Is(err, domain.ErrMalformedMetadata):
		// integration bug, not a user error; hide the details
		msg = "payment could not be processed"
	case errors.Is(err, domain.ErrLedgerCommitFailed):
		msg = "payment recorded upstream but not yet applied, please retry"
	case errors.Is(err, domain.ErrInvalidArgument):
		msg = "invalid request"
	default:
		msg = "request failed"
	}
	s.log.Debug().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func toPaymentJSON(p *model.Payment) paymentJSON {
	return paymentJSON{
		ID:     p.ID,
		Amount: p.Amount,
		Memo:   p.Memo,
		TxID:   p.TxID,
		Status: string(p.Status),
	}
}

func toSubscriptionJSON(sub *model.Subscription) subscriptionJSON {
	out := subscriptionJSON{
		AccountID:  sub.AccountID,
		Plan:       string(sub.Plan),
		ExpiresAt:  sub.ExpiresAt,
		HasPremium: sub.HasPremium,
	}
	if sub.Period != model.PeriodNone {
		p := string(sub.Period)
		out.Period = &p
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
