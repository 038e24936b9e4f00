// Package debate implements the debate lifecycle: creation, rebuttal, voting, manual and
// timed close, and winner computation.
package debate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alphabot-ai/debateboard/internal/apperr"
	"github.com/alphabot-ai/debateboard/internal/clock"
	"github.com/alphabot-ai/debateboard/internal/metrics"
	"github.com/alphabot-ai/debateboard/internal/store"
)

// DefaultWindow is how long voting stays open after a rebuttal
const DefaultWindow = 12 * time.Hour

type Options struct {
	Window time.Duration
	Logger *slog.Logger
}

// Engine runs every state transition of a debate. Mutations of one debate are
// serialized; different debates proceed in parallel.
type Engine struct {
	store  store.DebateStore
	clock  clock.Clock
	window time.Duration
	logger *slog.Logger

	locks  *keyedMutex
	sweeps singleflight.Group
}

// New creates an engine on top of a debate store
func New(s store.DebateStore, c clock.Clock, opts Options) *Engine {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if c == nil {
		c = clock.System{}
	}
	return &Engine{
		store:  s,
		clock:  c,
		window: opts.Window,
		logger: opts.Logger.With("component", "debate"),
		locks:  newKeyedMutex(),
	}
}

// ClosesAt returns when the voting window of d ends, or false when no window is running
func (e *Engine) ClosesAt(d *store.Debate) (time.Time, bool) {
	if d.RebuttalAt == nil || d.IsClosed {
		return time.Time{}, false
	}
	return d.RebuttalAt.Add(e.window), true
}

// Create stores a new open debate
func (e *Engine) Create(ctx context.Context, in CreateInput) (*store.Debate, error) {
	in.normalize()
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	author := in.Author
	if author == "" {
		author = store.Anonymous
	}
	category := store.Category(in.Category)
	if category == "" {
		category = store.CategoryOther
	}

	d := &store.Debate{
		Title:     in.Title,
		Content:   in.Content,
		Author:    author,
		Category:  category,
		Voters:    []string{},
		CreatedAt: e.clock.Now(),
	}
	if err := e.store.SaveDebate(ctx, d); err != nil {
		return nil, apperr.Internal("save debate", err)
	}

	metrics.DebatesCreated.Inc()
	e.logger.Info("debate created", "debate_id", d.ID, "category", d.Category)
	return d, nil
}

// Get returns a debate by id
func (e *Engine) Get(ctx context.Context, id string) (*store.Debate, error) {
	return e.load(ctx, id)
}

// RegisterRebuttal attaches the single rebuttal to a debate and opens its voting window.
// A debate closed before it was contested is reopened.
func (e *Engine) RegisterRebuttal(ctx context.Context, id string, in RebuttalInput) (*store.Debate, error) {
	in.normalize()

	return e.mutate(ctx, id, func(d *store.Debate, now time.Time) error {
		if d.HasRebuttal() {
			return apperr.New(apperr.KindAlreadyRebutted, "debate already has a rebuttal")
		}
		if err := validateInput(&in); err != nil {
			return err
		}

		author := in.Author
		if author == "" {
			author = store.Anonymous
		}
		d.RebuttalTitle = in.Title
		d.RebuttalContent = in.Content
		d.RebuttalAuthor = author
		d.RebuttalAt = &now

		d.IsClosed = false
		d.ClosedAt = nil
		d.Winner = store.WinnerNone
		return nil
	})
}

// Close closes a debate by hand. No winner is computed.
func (e *Engine) Close(ctx context.Context, id string) (*store.Debate, error) {
	d, err := e.mutate(ctx, id, func(d *store.Debate, now time.Time) error {
		if d.IsClosed {
			return apperr.New(apperr.KindAlreadyClosed, "debate is already closed")
		}
		d.IsClosed = true
		d.ClosedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DebatesClosed.WithLabelValues("manual").Inc()
	return d, nil
}

// Update replaces title and content while the debate is still uncontested and open
func (e *Engine) Update(ctx context.Context, id, title, content string) (*store.Debate, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	return e.mutate(ctx, id, func(d *store.Debate, _ time.Time) error {
		if d.IsClosed || d.HasRebuttal() {
			return apperr.New(apperr.KindLockedForEditing, "debate can no longer be edited")
		}
		if title == "" || content == "" {
			return apperr.New(apperr.KindValidation, "title and content are required")
		}
		d.Title = title
		d.Content = content
		return nil
	})
}

// Delete removes a debate with its comments and voters
func (e *Engine) Delete(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	if _, err := e.load(ctx, id); err != nil {
		return err
	}
	if err := e.store.DeleteDebate(ctx, id); err != nil {
		return apperr.Internal("delete debate", err)
	}

	e.logger.Info("debate deleted", "debate_id", id)
	return nil
}

func (e *Engine) Like(ctx context.Context, id string) (*store.Debate, error) {
	return e.mutate(ctx, id, func(d *store.Debate, _ time.Time) error {
		d.Likes++
		return nil
	})
}

func (e *Engine) Dislike(ctx context.Context, id string) (*store.Debate, error) {
	return e.mutate(ctx, id, func(d *store.Debate, _ time.Time) error {
		d.Dislikes++
		return nil
	})
}

// List closes expired debates and returns every debate, newest first. Concurrent
// callers share one read-path sweep.
func (e *Engine) List(ctx context.Context) ([]*store.Debate, error) {
	sweepCtx := context.WithoutCancel(ctx)
	_, err, _ := e.sweeps.Do("list", func() (any, error) {
		return e.AutoCloseSweep(sweepCtx, e.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	debates, err := e.store.FindAllDebates(ctx)
	if err != nil {
		return nil, apperr.Internal("list debates", err)
	}
	return debates, nil
}

func (e *Engine) load(ctx context.Context, id string) (*store.Debate, error) {
	d, err := e.store.FindDebate(ctx, id)
	if err != nil {
		return nil, apperr.Internal("find debate", err)
	}
	if d == nil {
		return nil, apperr.New(apperr.KindNotFound, "debate not found")
	}
	return d, nil
}

// mutate loads the debate under its lock, applies fn and saves the result.
// Nothing is saved when fn fails.
func (e *Engine) mutate(ctx context.Context, id string, fn func(d *store.Debate, now time.Time) error) (*store.Debate, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	d, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(d, e.clock.Now()); err != nil {
		return nil, err
	}
	if err := e.store.SaveDebate(ctx, d); err != nil {
		return nil, apperr.Internal("save debate", err)
	}
	return d, nil
}
