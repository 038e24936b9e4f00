package debate

import (
	"context"
	"time"

	"github.com/alphabot-ai/debateboard/internal/apperr"
	"github.com/alphabot-ai/debateboard/internal/metrics"
	"github.com/alphabot-ai/debateboard/internal/store"
)

// SweepResult lists the debates a sweep closed and the ones it had to skip
type SweepResult struct {
	Closed []string `json:"closed"`
	Failed []string `json:"failed"`
}

// ComputeWinner picks the side with more votes; equal counts are a draw
func ComputeWinner(authorVotes, rebuttalVotes int) store.Winner {
	switch {
	case authorVotes > rebuttalVotes:
		return store.WinnerAuthor
	case authorVotes < rebuttalVotes:
		return store.WinnerRebuttal
	default:
		return store.WinnerDraw
	}
}

// AutoCloseSweep closes every rebutted, open debate whose voting window has elapsed at
// now and records its winner. A debate that fails to close is logged and skipped.
// Running it again with the same now changes nothing.
func (e *Engine) AutoCloseSweep(ctx context.Context, now time.Time) (SweepResult, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	var res SweepResult

	debates, err := e.store.FindAllDebates(ctx)
	if err != nil {
		return res, apperr.Internal("sweep: list debates", err)
	}

	for _, d := range debates {
		if d.IsClosed || !windowElapsed(d, e.window, now) {
			continue
		}

		closed, err := e.closeExpired(ctx, d.ID, now)
		if err != nil {
			e.logger.Error("sweep: failed to close debate", "debate_id", d.ID, "error", err)
			metrics.SweepFailures.Inc()
			res.Failed = append(res.Failed, d.ID)
			continue
		}
		if closed {
			res.Closed = append(res.Closed, d.ID)
		}
	}

	if len(res.Closed) > 0 {
		e.logger.Info("sweep closed debates", "closed", len(res.Closed), "failed", len(res.Failed))
	}
	return res, nil
}

// closeExpired re-reads the debate under its lock since it may have changed after the
// snapshot was taken
func (e *Engine) closeExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	d, err := e.store.FindDebate(ctx, id)
	if err != nil {
		return false, err
	}
	if d == nil || d.IsClosed || !windowElapsed(d, e.window, now) {
		return false, nil
	}

	d.IsClosed = true
	d.ClosedAt = &now
	d.Winner = ComputeWinner(d.AuthorVotes, d.RebuttalVotes)
	if err := e.store.SaveDebate(ctx, d); err != nil {
		return false, err
	}

	metrics.DebatesClosed.WithLabelValues("timed").Inc()
	e.logger.Info("debate closed", "debate_id", d.ID, "winner", d.Winner)
	return true, nil
}
