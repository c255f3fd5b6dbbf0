package adapter

import (
	"context"

	"pi-subscription-backend/internal/domain/model"
)

// PaymentNetwork is the hex port for the wallet payment provider. The network
// owns payment state; these calls either verify an identity or acknowledge a
// phase of the two-phase approve/complete protocol.
//
// Implementations classify every failure into the domain taxonomy:
// ErrInvalidToken, ErrApprovalRejected, ErrCompletionRejected,
// ErrUpstreamTimeout, ErrUpstreamUnavailable.
type PaymentNetwork interface {
	Name() string

	// VerifyIdentity validates a user access token and returns the wallet
	// identity it belongs to.
	VerifyIdentity(ctx context.Context, accessToken string) (model.ExternalIdentity, error)

	// ApprovePayment tells the network the pending payment may proceed.
	// Pure pass-through gate; callers must not write local state on success.
	ApprovePayment(ctx context.Context, paymentID string) (*model.Payment, error)

	// CompletePayment acknowledges the blockchain transaction for a payment
	// and returns the network's view of it, including the creation metadata.
	CompletePayment(ctx context.Context, paymentID, txid string) (*model.Payment, error)
}
