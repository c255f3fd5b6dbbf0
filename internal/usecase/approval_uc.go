// File: internal/usecase/approval_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/domain/ports/adapter"
	"pi-subscription-backend/internal/infra/logging"
	"pi-subscription-backend/internal/infra/metrics"
)

// Compile-time check
var _ ApprovalUseCase = (*approvalUC)(nil)

// ApprovalUseCase reacts to the network's ready-for-approval callback.
type ApprovalUseCase interface {
	// Approve acknowledges the pending payment upstream. Pure pass-through:
	// no local state is written, which keeps retries free of side effects.
	Approve(ctx context.Context, paymentID string) (*model.Payment, error)
}

type approvalUC struct {
	network adapter.PaymentNetwork
	log     *zerolog.Logger
}

func NewApprovalUseCase(network adapter.PaymentNetwork, logger *zerolog.Logger) *approvalUC {
	return &approvalUC{network: network, log: logger}
}

func (u *approvalUC) Approve(ctx context.Context, paymentID string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "ApprovalUC.Approve")()
	if paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}

	p, err := u.network.ApprovePayment(ctx, paymentID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrApprovalRejected):
			metrics.IncPaymentApproval("rejected")
			u.log.Warn().Err(err).Str("payment_id", paymentID).Msg("upstream rejected approval")
		case errors.Is(err, domain.ErrUpstreamTimeout):
			metrics.IncPaymentApproval("timeout")
		default:
			metrics.IncPaymentApproval("unavailable")
		}
		return nil, err
	}

	metrics.IncPaymentApproval("ok")
	u.log.Info().Str("payment_id", paymentID).Msg("payment approved")
	return p, nil
}
