package pinetwork

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/domain/ports/adapter"
	"pi-subscription-backend/internal/infra/metrics"
)

var _ adapter.PaymentNetwork = (*PiGateway)(nil)

// PiGateway implements adapter.PaymentNetwork against the Pi platform REST API.
// Identity verification uses the end-user Bearer token; approve/complete use
// the service-held API key ("Key" scheme), never a user token.
type PiGateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewPiGateway(apiKey, baseURL string, timeout time.Duration) (*PiGateway, error) {
	if apiKey == "" {
		return nil, errors.New("pi api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.minepi.com/v2"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PiGateway{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (g *PiGateway) Name() string { return "pi-network" }

// paymentDTO is the network's wire shape for a payment.
type paymentDTO struct {
	Identifier string                 `json:"identifier"`
	UserUID    string                 `json:"user_uid"`
	Amount     float64                `json:"amount"`
	Memo       string                 `json:"memo"`
	Metadata   map[string]interface{} `json:"metadata"`
	Status     struct {
		DeveloperApproved   bool `json:"developer_approved"`
		TransactionVerified bool `json:"transaction_verified"`
		DeveloperCompleted  bool `json:"developer_completed"`
		Cancelled           bool `json:"cancelled"`
		UserCancelled       bool `json:"user_cancelled"`
	} `json:"status"`
	Transaction *struct {
		TxID     string `json:"txid"`
		Verified bool   `json:"verified"`
	} `json:"transaction"`
}

func (d *paymentDTO) toModel() *model.Payment {
	p := &model.Payment{
		ID:       d.Identifier,
		Amount:   d.Amount,
		Memo:     d.Memo,
		Metadata: metadataFrom(d.Metadata),
		Status:   model.PaymentStatusCreated,
	}
	if d.Transaction != nil {
		p.TxID = d.Transaction.TxID
	}
	switch {
	case d.Status.Cancelled || d.Status.UserCancelled:
		p.Status = model.PaymentStatusCancelled
	case d.Status.DeveloperCompleted:
		p.Status = model.PaymentStatusCompleted
	case d.Status.TransactionVerified:
		p.Status = model.PaymentStatusPendingCompletion
	case d.Status.DeveloperApproved:
		p.Status = model.PaymentStatusApproved
	}
	return p
}

// metadataFrom tolerates both camelCase and snake_case keys; older clients
// attached account_id while current ones send accountId.
func metadataFrom(m map[string]interface{}) model.PaymentMetadata {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := m[k]; ok {
				if s, ok := v.(string); ok {
					return s
				}
			}
		}
		return ""
	}
	return model.PaymentMetadata{
		AccountID: get("accountId", "account_id", "profileId", "profile_id"),
		Plan:      get("plan"),
		Period:    get("period"),
	}
}

func (g *PiGateway) VerifyIdentity(ctx context.Context, accessToken string) (model.ExternalIdentity, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/me", nil)
	if err != nil {
		return model.ExternalIdentity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.ObserveNetworkCall("verify", "transport_error", time.Since(start).Seconds())
		return model.ExternalIdentity{}, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		metrics.ObserveNetworkCall("verify", "rejected", time.Since(start).Seconds())
		return model.ExternalIdentity{}, fmt.Errorf("%w: status %d", domain.ErrInvalidToken, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveNetworkCall("verify", "error", time.Since(start).Seconds())
		return model.ExternalIdentity{}, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var out struct {
		UID      string `json:"uid"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.ExternalIdentity{}, fmt.Errorf("%w: decode /me: %v", domain.ErrUpstreamUnavailable, err)
	}
	if out.UID == "" {
		return model.ExternalIdentity{}, fmt.Errorf("%w: empty uid", domain.ErrInvalidToken)
	}
	metrics.ObserveNetworkCall("verify", "ok", time.Since(start).Seconds())
	return model.ExternalIdentity{UID: out.UID, Username: out.Username}, nil
}

func (g *PiGateway) ApprovePayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	start := time.Now()
	p, err := g.postPayment(ctx, paymentID, "approve", nil)
	if err != nil {
		result := "error"
		if errors.Is(err, errUpstreamRefused) {
			err = fmt.Errorf("%w: %s", domain.ErrApprovalRejected, errReason(err))
			result = "rejected"
		}
		metrics.ObserveNetworkCall("approve", result, time.Since(start).Seconds())
		return nil, err
	}
	metrics.ObserveNetworkCall("approve", "ok", time.Since(start).Seconds())
	return p, nil
}

func (g *PiGateway) CompletePayment(ctx context.Context, paymentID, txid string) (*model.Payment, error) {
	start := time.Now()
	p, err := g.postPayment(ctx, paymentID, "complete", map[string]string{"txid": txid})
	if err != nil {
		result := "error"
		if errors.Is(err, errUpstreamRefused) {
			err = fmt.Errorf("%w: %s", domain.ErrCompletionRejected, errReason(err))
			result = "rejected"
		}
		metrics.ObserveNetworkCall("complete", result, time.Since(start).Seconds())
		return nil, err
	}
	if p.TxID == "" {
		p.TxID = txid
	}
	metrics.ObserveNetworkCall("complete", "ok", time.Since(start).Seconds())
	return p, nil
}

// errUpstreamRefused marks a non-2xx response so callers can map it to the
// phase-specific rejection error.
var errUpstreamRefused = errors.New("upstream refused")

func errReason(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func (g *PiGateway) postPayment(ctx context.Context, paymentID, action string, body any) (*model.Payment, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	url := fmt.Sprintf("%s/payments/%s/%s", g.baseURL, paymentID, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d %s", errUpstreamRefused, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var dto paymentDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("%w: decode payment: %v", domain.ErrUpstreamUnavailable, err)
	}
	if dto.Identifier == "" {
		dto.Identifier = paymentID
	}
	return dto.toModel(), nil
}

// classifyTransport maps client-side failures into the domain taxonomy.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}
