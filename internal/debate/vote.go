package debate

import (
	"context"
	"strings"
	"time"

	"github.com/alphabot-ai/debateboard/internal/apperr"
	"github.com/alphabot-ai/debateboard/internal/metrics"
	"github.com/alphabot-ai/debateboard/internal/store"
)

// Vote records one vote by voter for side. Each voter votes once per debate and
// neither the author nor the rebuttal author may vote on it.
//
// A debate closed while its voting window is still running (a manual close) accepts
// the vote and is reopened. The cleared close is only persisted with the vote.
func (e *Engine) Vote(ctx context.Context, id, voter, voteType string) (*store.Debate, error) {
	d, err := e.vote(ctx, id, voter, voteType)
	outcome := "accepted"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	metrics.Votes.WithLabelValues(outcome).Inc()
	return d, err
}

func (e *Engine) vote(ctx context.Context, id, voter, voteType string) (*store.Debate, error) {
	side, ok := ParseSide(voteType)
	if !ok {
		return nil, apperr.Newf(apperr.KindInvalidVoteType, "vote type must be %q or %q", SideAuthor, SideRebuttal)
	}
	voter = strings.TrimSpace(voter)
	if voter == "" {
		return nil, apperr.New(apperr.KindValidation, "voter is required")
	}

	return e.mutate(ctx, id, func(d *store.Debate, now time.Time) error {
		if voter == d.Author || (d.RebuttalAuthor != "" && voter == d.RebuttalAuthor) {
			return apperr.New(apperr.KindSelfVoteForbidden, "participants cannot vote on their own debate")
		}
		if !d.HasRebuttal() {
			return apperr.New(apperr.KindNoRebuttalYet, "debate has no rebuttal yet")
		}
		if d.IsClosed && windowElapsed(d, e.window, now) {
			return apperr.New(apperr.KindAlreadyClosed, "voting has ended")
		}
		if d.HasVoter(voter) {
			return apperr.New(apperr.KindDuplicateVote, "voter already voted on this debate")
		}
		if d.IsClosed {
			e.logger.Info("reopening debate closed inside its voting window", "debate_id", d.ID)
			d.IsClosed = false
			d.ClosedAt = nil
			d.Winner = store.WinnerNone
		}

		switch side {
		case SideAuthor:
			d.AuthorVotes++
		case SideRebuttal:
			d.RebuttalVotes++
		}
		d.Voters = append(d.Voters, voter)
		return nil
	})
}
