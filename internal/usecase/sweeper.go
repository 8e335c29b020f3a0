package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically removes expired sessions so the store does not
// accumulate rows that can never refresh again.
type Sweeper struct {
	tokens   *TokenService
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper constructs the background sweep worker.
func NewSweeper(tokens *TokenService, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{tokens: tokens, interval: interval, logger: log}
}

// Run sweeps on the configured interval until the context is canceled. One
// sweep runs immediately on start.
func (w *Sweeper) Run(ctx context.Context) {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			w.logger.Info("sweeper stopped")
			return
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	removed, err := w.tokens.Sweep(ctx)
	if err != nil {
		w.logger.Error("sweep failed", zap.Error(err))
		return
	}

	if removed > 0 {
		w.logger.Info("expired sessions removed", zap.Int("count", removed))
	}
}
