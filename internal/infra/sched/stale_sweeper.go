package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/repository"
	"dating-subscription-payments/internal/infra/metrics"
)

// StaleSweeper periodically expires pending transactions whose phone prompt
// was never answered. Providers stop delivering callbacks after their own
// timeout, so a long-pending row will never resolve on its own. The sweeper
// uses the same pending-only compare-and-set as the reconciler: if a callback
// races the sweep, exactly one of them wins.
type StaleSweeper struct {
	transactions repository.TransactionRepository
	interval     time.Duration
	staleAfter   time.Duration
	log          *zerolog.Logger
}

func NewStaleSweeper(transactions repository.TransactionRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *StaleSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &StaleSweeper{transactions: transactions, interval: interval, staleAfter: staleAfter, log: logger}
}

func (w *StaleSweeper) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *StaleSweeper) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.transactions.ListPendingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("stale-sweeper: list pending failed")
		return
	}
	for _, tx := range stale {
		won, err := w.transactions.TransitionIfPending(ctx, nil, tx.ID, model.TransactionStatusFailed, map[string]any{
			"swept_at": time.Now().UTC().Format(time.RFC3339),
			"reason":   "no provider callback before timeout",
		})
		if err != nil {
			w.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("stale-sweeper: transition failed")
			continue
		}
		if won {
			metrics.IncSwept()
			w.log.Info().Str("transaction_id", tx.ID).Str("provider", string(tx.Provider)).
				Msg("stale-sweeper: expired pending transaction")
		}
	}
}
