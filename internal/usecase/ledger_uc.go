// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pi-subscription-backend/internal/domain/model"
	"pi-subscription-backend/internal/domain/ports/repository"
	"pi-subscription-backend/internal/infra/logging"
	"pi-subscription-backend/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// SubscriptionCache is the optional read-through cache in front of the ledger.
type SubscriptionCache interface {
	Get(ctx context.Context, accountID string) (*model.Subscription, bool)
	Put(ctx context.Context, s *model.Subscription)
	Invalidate(ctx context.Context, accountID string)
}

// LedgerUseCase reads and sweeps the per-account subscription ledger.
type LedgerUseCase interface {
	// GetState returns the current subscription, enforcing lazy expiry: an
	// expired row is transactionally downgraded to free before returning.
	GetState(ctx context.Context, accountID string) (*model.Subscription, error)
	// History lists the append-only transaction trail, newest first.
	History(ctx context.Context, accountID string, limit int) ([]*model.TransactionRecord, error)
	// SweepExpired downgrades up to limit lapsed subscriptions and reports how
	// many rows changed. Optional; the lazy read path alone keeps the invariant.
	SweepExpired(ctx context.Context, limit int) (int, error)
}

type ledgerUC struct {
	subs  repository.SubscriptionRepository
	txs   repository.TransactionRepository
	tm    repository.TransactionManager
	cache SubscriptionCache
	now   func() time.Time
	log   *zerolog.Logger
}

func NewLedgerUseCase(subs repository.SubscriptionRepository, txs repository.TransactionRepository, tm repository.TransactionManager, cache SubscriptionCache, logger *zerolog.Logger) *ledgerUC {
	return &ledgerUC{
		subs:  subs,
		txs:   txs,
		tm:    tm,
		cache: cache,
		now:   time.Now,
		log:   logger,
	}
}

func (u *ledgerUC) GetState(ctx context.Context, accountID string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.GetState")()

	now := u.now()
	if u.cache != nil {
		if s, ok := u.cache.Get(ctx, accountID); ok && !s.Expired(now) {
			return s, nil
		}
	}

	var state *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// FOR UPDATE: a completion committing concurrently either lands before
		// the read (we see the fresh expiry) or blocks until we are done, so a
		// stale expiry check can never clobber a new payment.
		s, err := u.subs.FindByAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if s.Expired(now) {
			s.Downgrade()
			if err := u.subs.SetPlan(ctx, tx, accountID, model.PlanFree, model.PeriodNone, nil); err != nil {
				return err
			}
			metrics.IncDowngraded("lazy_read")
			u.log.Info().Str("account_id", accountID).Msg("expired subscription downgraded on read")
		}
		state = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		u.cache.Put(ctx, state)
	}
	return state, nil
}

func (u *ledgerUC) History(ctx context.Context, accountID string, limit int) ([]*model.TransactionRecord, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.History")()
	return u.txs.ListByAccount(ctx, repository.NoTX, accountID, limit)
}

func (u *ledgerUC) SweepExpired(ctx context.Context, limit int) (int, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.SweepExpired")()

	now := u.now()
	lapsed, err := u.subs.ListExpired(ctx, repository.NoTX, now, limit)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, s := range lapsed {
		// Per-row transaction: re-read under lock so a completion that renewed
		// the account between the scan and now is left alone.
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			cur, err := u.subs.FindByAccount(ctx, tx, s.AccountID)
			if err != nil {
				return err
			}
			if !cur.Expired(now) {
				return nil
			}
			if err := u.subs.SetPlan(ctx, tx, s.AccountID, model.PlanFree, model.PeriodNone, nil); err != nil {
				return err
			}
			n++
			metrics.IncDowngraded("sweep")
			return nil
		})
		if err != nil {
			u.log.Error().Err(err).Str("account_id", s.AccountID).Msg("sweep downgrade failed")
			continue
		}
		if u.cache != nil {
			u.cache.Invalidate(ctx, s.AccountID)
		}
	}
	return n, nil
}
