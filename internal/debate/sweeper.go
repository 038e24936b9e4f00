package debate

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is used when no positive interval is configured
const DefaultSweepInterval = time.Minute

// Sweeper runs AutoCloseSweep on a fixed interval
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(engine *Engine, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		engine:   engine,
		interval: interval,
		logger:   logger.With("component", "sweeper"),
	}
}

// Run sweeps once per tick until ctx is cancelled. It always returns nil so it can run
// inside an errgroup next to the HTTP server.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.engine.AutoCloseSweep(ctx, s.engine.clock.Now()); err != nil {
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}
