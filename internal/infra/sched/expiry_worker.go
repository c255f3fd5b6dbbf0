package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pi-subscription-backend/internal/usecase"
)

const sweepBatchSize = 200

// ExpiryWorker periodically downgrades lapsed subscriptions. It is a backstop:
// the read path already downgrades lazily, the sweep just keeps dormant
// accounts from lingering on a paid plan in reports.
type ExpiryWorker struct {
	interval time.Duration
	ledger   usecase.LedgerUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, ledger usecase.LedgerUseCase, logger *zerolog.Logger) *ExpiryWorker {
	wl := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		ledger:   ledger,
		log:      &wl,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.ledger.SweepExpired(ctx, sweepBatchSize)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("expired subscriptions downgraded")
			}
		}
	}
}
