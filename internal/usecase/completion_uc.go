// File: internal/usecase/completion_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"pi-subscription-backend/internal/domain"
	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/domain/ports/adapter"
	"pi-subscription-backend/internal/domain/ports/repository"
	"pi-subscription-backend/internal/infra/logging"
	"pi-subscription-backend/internal/infra/metrics"
)

// Compile-time check
var _ CompletionUseCase = (*completionUC)(nil)

// PaymentLocker is a best-effort mutex keyed by payment id. Correctness never
// depends on it; the transaction record's unique payment id is the real gate.
type PaymentLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// CompletionUseCase reacts to the network's ready-for-completion callback and
// translates a completed payment into a subscription change exactly once.
type CompletionUseCase interface {
	Complete(ctx context.Context, paymentID, txid string) (*model.Subscription, error)
}

type completionUC struct {
	network adapter.PaymentNetwork
	subs    repository.SubscriptionRepository
	txs     repository.TransactionRepository
	tm      repository.TransactionManager
	cache   SubscriptionCache
	locker  PaymentLocker
	now     func() time.Time
	log     *zerolog.Logger
}

func NewCompletionUseCase(network adapter.PaymentNetwork, subs repository.SubscriptionRepository, txs repository.TransactionRepository, tm repository.TransactionManager, cache SubscriptionCache, locker PaymentLocker, logger *zerolog.Logger) *completionUC {
	return &completionUC{
		network: network,
		subs:    subs,
		txs:     txs,
		tm:      tm,
		cache:   cache,
		locker:  locker,
		now:     time.Now,
		log:     logger,
	}
}

func (u *completionUC) Complete(ctx context.Context, paymentID, txid string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "CompletionUC.Complete")()
	if paymentID == "" || txid == "" {
		return nil, domain.ErrInvalidArgument
	}

	if u.locker != nil {
		// Fast path only: shed concurrent retries of the same payment before
		// they reach the database. Proceed on failure.
		if token, err := u.locker.TryLock(ctx, "pay:"+paymentID, 30*time.Second); err == nil {
			defer func() { _ = u.locker.Unlock(ctx, "pay:"+paymentID, token) }()
		}
	}

	payment, err := u.network.CompletePayment(ctx, paymentID, txid)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCompletionRejected):
			metrics.IncPaymentCompletion("rejected")
			u.log.Warn().Err(err).Str("payment_id", paymentID).Msg("upstream rejected completion")
		case errors.Is(err, domain.ErrUpstreamTimeout):
			metrics.IncPaymentCompletion("timeout")
		default:
			metrics.IncPaymentCompletion("unavailable")
		}
		return nil, err
	}

	if err := payment.Metadata.Validate(); err != nil {
		metrics.IncPaymentCompletion("malformed_metadata")
		// Integration bug on the paying client, not a user error: the payment
		// was created without subscription intent attached.
		u.log.Error().
			Str("payment_id", paymentID).
			Str("txid", txid).
			Interface("metadata", payment.Metadata).
			Msg("completed payment carries no usable subscription metadata")
		return nil, err
	}
	plan, period, err := payment.Metadata.PlanPeriod()
	if err != nil {
		metrics.IncPaymentCompletion("malformed_metadata")
		u.log.Error().
			Str("payment_id", paymentID).
			Str("plan", payment.Metadata.Plan).
			Str("period", payment.Metadata.Period).
			Msg("completed payment carries unknown plan or period")
		return nil, err
	}

	accountID := payment.Metadata.AccountID
	now := u.now()
	expiresAt := model.ExpiryFrom(now, period)
	rec, err := model.NewTransactionRecord(ulid.Make().String(), accountID, plan, period, payment.Amount, paymentID, txid, expiresAt)
	if err != nil {
		return nil, err
	}

	var (
		state  *model.Subscription
		replay bool
	)
	txErr := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Lock the account's ledger row first so this serializes with the
		// lazy-expiry read path.
		s, err := u.subs.FindByAccount(ctx, tx, accountID)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: unknown account %q", domain.ErrMalformedMetadata, accountID)
		}
		if err != nil {
			return err
		}

		inserted, err := u.txs.InsertIfAbsent(ctx, tx, rec)
		if err != nil {
			return err
		}
		if !inserted {
			// Network-level retry: the payment was already applied. Return the
			// current state without touching the ledger.
			replay = true
			state = s
			return nil
		}

		if err := u.subs.SetPlan(ctx, tx, accountID, plan, period, &expiresAt); err != nil {
			return err
		}
		s.Apply(plan, period, expiresAt)
		state = s
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, domain.ErrMalformedMetadata) {
			metrics.IncPaymentCompletion("malformed_metadata")
			u.log.Error().Err(txErr).Str("payment_id", paymentID).Msg("completion metadata points at no account")
			return nil, txErr
		}
		// Upstream already confirmed the funds; the caller must retry the
		// idempotent sequence rather than drop the payment.
		metrics.IncPaymentCompletion("ledger_failed")
		u.log.Error().Err(txErr).Str("payment_id", paymentID).Msg("ledger commit failed after upstream completion")
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerCommitFailed, txErr)
	}

	if u.cache != nil {
		u.cache.Invalidate(ctx, accountID)
	}

	if replay {
		metrics.IncCompletionReplay()
		metrics.IncPaymentCompletion("ok")
		u.log.Info().Str("payment_id", paymentID).Msg("completion replayed; already applied")
		return state, nil
	}

	metrics.IncPaymentCompletion("ok")
	metrics.AddRevenue(string(plan), payment.Amount)
	u.log.Info().
		Str("payment_id", paymentID).
		Str("account_id", accountID).
		Str("plan", string(plan)).
		Str("period", string(period)).
		Time("expires_at", expiresAt).
		Msg("subscription updated for completed payment")
	return state, nil
}
