package debate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/debateboard/internal/apperr"
	"github.com/alphabot-ai/debateboard/internal/clock"
	"github.com/alphabot-ai/debateboard/internal/store"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *store.SQLStore {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "debateboard-debate-*.db")
	require.NoError(t, err)
	tmpFile.Close()

	s, err := store.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(tmpFile.Name())
	})
	return s
}

func setupEngine(t *testing.T) (*Engine, *clock.Manual, *store.SQLStore) {
	t.Helper()
	s := setupTestDB(t)
	clk := clock.NewManual(t0)
	return New(s, clk, Options{Logger: quietLogger()}), clk, s
}

// rebutted creates a debate by alice with a rebuttal by bob
func rebutted(t *testing.T, e *Engine) *store.Debate {
	t.Helper()
	ctx := context.Background()
	d, err := e.Create(ctx, CreateInput{Title: "A", Content: "B", Author: "alice"})
	require.NoError(t, err)
	d, err = e.RegisterRebuttal(ctx, d.ID, RebuttalInput{Title: "R", Content: "C", Author: "bob"})
	require.NoError(t, err)
	return d
}

func TestCreate(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()

	d, err := e.Create(ctx, CreateInput{Title: "  Pineapple on pizza  ", Content: "Yes."})
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "Pineapple on pizza", d.Title)
	assert.Equal(t, store.Anonymous, d.Author)
	assert.Equal(t, store.CategoryOther, d.Category)
	assert.False(t, d.IsClosed)
	assert.True(t, d.CreatedAt.Equal(t0))
	assert.Equal(t, StateOpen, StateOf(d))

	got, err := e.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Title, got.Title)
}

func TestCreateValidation(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"empty title", CreateInput{Title: "", Content: "x"}},
		{"blank content", CreateInput{Title: "x", Content: "   "}},
		{"unknown category", CreateInput{Title: "x", Content: "y", Category: "politics"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Create(ctx, tt.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	_, err := e.Create(ctx, CreateInput{Title: "x", Content: "y", Category: "politics"})
	assert.Contains(t, apperr.MessageOf(err), "game, society, romance, sports, other")

	for _, c := range store.Categories {
		d, err := e.Create(ctx, CreateInput{Title: "x", Content: "y", Category: strings.ToUpper(string(c))})
		require.NoError(t, err)
		assert.Equal(t, c, d.Category)
	}
}

func TestRegisterRebuttal(t *testing.T) {
	e, clk, _ := setupEngine(t)
	ctx := context.Background()

	d, err := e.Create(ctx, CreateInput{Title: "A", Content: "B", Author: "alice"})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	d, err = e.RegisterRebuttal(ctx, d.ID, RebuttalInput{Title: "R", Content: "C", Author: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "bob", d.RebuttalAuthor)
	require.NotNil(t, d.RebuttalAt)
	assert.True(t, d.RebuttalAt.Equal(t0.Add(time.Hour)))
	assert.Equal(t, StateRebutted, StateOf(d))

	closesAt, ok := e.ClosesAt(d)
	require.True(t, ok)
	assert.True(t, closesAt.Equal(t0.Add(13*time.Hour)))

	_, err = e.RegisterRebuttal(ctx, d.ID, RebuttalInput{Title: "R2", Content: "C2", Author: "carol"})
	assert.ErrorIs(t, err, apperr.ErrAlreadyRebutted)

	_, err = e.RegisterRebuttal(ctx, "missing", RebuttalInput{Title: "R", Content: "C"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRebuttalReopensClosedDebate(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()

	d, err := e.Create(ctx, CreateInput{Title: "A", Content: "B", Author: "alice"})
	require.NoError(t, err)
	_, err = e.Close(ctx, d.ID)
	require.NoError(t, err)

	d, err = e.RegisterRebuttal(ctx, d.ID, RebuttalInput{Title: "R", Content: "C", Author: "bob"})
	require.NoError(t, err)
	assert.False(t, d.IsClosed)
	assert.Nil(t, d.ClosedAt)
	assert.Equal(t, store.WinnerNone, d.Winner)
}

func TestCloseManually(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()

	d := rebutted(t, e)
	d, err := e.Close(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, d.IsClosed)
	require.NotNil(t, d.ClosedAt)
	assert.Equal(t, store.WinnerNone, d.Winner, "manual close computes no winner")

	_, err = e.Close(ctx, d.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyClosed)

	_, err = e.Close(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVoteChecks(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()

	open, err := e.Create(ctx, CreateInput{Title: "A", Content: "B", Author: "alice"})
	require.NoError(t, err)
	d := rebutted(t, e)

	tests := []struct {
		name     string
		id       string
		voter    string
		voteType string
		want     error
	}{
		{"invalid type", d.ID, "carol", "both", apperr.ErrInvalidVoteType},
		{"empty voter", d.ID, " ", "author", apperr.ErrValidation},
		{"missing debate", "missing", "carol", "author", apperr.ErrNotFound},
		{"author self vote", d.ID, "alice", "author", apperr.ErrSelfVoteForbidden},
		{"rebuttal author self vote", d.ID, "bob", "rebuttal", apperr.ErrSelfVoteForbidden},
		{"author self vote before rebuttal", open.ID, "alice", "rebuttal", apperr.ErrSelfVoteForbidden},
		{"no rebuttal", open.ID, "carol", "author", apperr.ErrNoRebuttalYet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Vote(ctx, tt.id, tt.voter, tt.voteType)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, err := e.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Zero(t, got.AuthorVotes)
	assert.Zero(t, got.RebuttalVotes)
	assert.Empty(t, got.Voters)
}

func TestVoteExclusivity(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()
	d := rebutted(t, e)

	d, err := e.Vote(ctx, d.ID, "carol", "rebuttal")
	require.NoError(t, err)
	assert.Equal(t, 1, d.RebuttalVotes)
	assert.Equal(t, []string{"carol"}, d.Voters)

	_, err = e.Vote(ctx, d.ID, "carol", "author")
	assert.ErrorIs(t, err, apperr.ErrDuplicateVote)

	got, err := e.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AuthorVotes)
	assert.Equal(t, 1, got.RebuttalVotes)
	assert.Equal(t, []string{"carol"}, got.Voters)
}

func TestSelfVoteForbiddenWhenClosed(t *testing.T) {
	e, clk, _ := setupEngine(t)
	ctx := context.Background()
	d := rebutted(t, e)

	clk.Advance(13 * time.Hour)
	_, err := e.AutoCloseSweep(ctx, clk.Now())
	require.NoError(t, err)

	for _, voter := range []string{"alice", "bob"} {
		for _, side := range []string{"author", "rebuttal"} {
			_, err := e.Vote(ctx, d.ID, voter, side)
			assert.ErrorIs(t, err, apperr.ErrSelfVoteForbidden, "%s voting %s", voter, side)
		}
	}
}

func TestVoteReopensStaleClose(t *testing.T) {
	e, clk, _ := setupEngine(t)
	ctx := context.Background()
	d := rebutted(t, e)

	_, err := e.Close(ctx, d.ID)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	d, err = e.Vote(ctx, d.ID, "carol", "author")
	require.NoError(t, err)
	assert.False(t, d.IsClosed)
	assert.Nil(t, d.ClosedAt)
	assert.Equal(t, 1, d.AuthorVotes)

	// A rejected vote does not persist the reopen
	_, err = e.Close(ctx, d.ID)
	require.NoError(t, err)
	_, err = e.Vote(ctx, d.ID, "carol", "author")
	assert.ErrorIs(t, err, apperr.ErrDuplicateVote)
	got, err := e.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClosed)
}

func TestVoteAfterWindowElapsed(t *testing.T) {
	e, clk, _ := setupEngine(t)
	ctx := context.Background()
	d := rebutted(t, e)

	_, err := e.Close(ctx, d.ID)
	require.NoError(t, err)

	clk.Advance(12 * time.Hour)
	_, err = e.Vote(ctx, d.ID, "carol", "author")
	assert.ErrorIs(t, err, apperr.ErrAlreadyClosed)
}

func TestComputeWinner(t *testing.T) {
	tests := []struct {
		author, rebuttal int
		want             store.Winner
	}{
		{5, 3, store.WinnerAuthor},
		{2, 7, store.WinnerRebuttal},
		{4, 4, store.WinnerDraw},
		{0, 0, store.WinnerDraw},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.author, tt.rebuttal), func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeWinner(tt.author, tt.rebuttal))
		})
	}
}

func TestAutoCloseSweep(t *testing.T) {
	e, clk, _ := setupEngine(t)
	ctx := context.Background()

	expired := rebutted(t, e)
	_, err := e.Vote(ctx, expired.ID, "carol", "rebuttal")
	require.NoError(t, err)

	clk.Advance(6 * time.Hour)
	running := rebutted(t, e)
	open, err := e.Create(ctx, CreateInput{Title: "A", Content: "B"})
	require.NoError(t, err)

	now := t0.Add(12 * time.Hour)
	res, err := e.AutoCloseSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{expired.ID}, res.Closed)
	assert.Empty(t, res.Failed)

	got, err := e.Get(ctx, expired.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClosed)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(now))
	assert.Equal(t, store.WinnerRebuttal, got.Winner)

	for _, id := range []string{running.ID, open.ID} {
		got, err := e.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, got.IsClosed)
	}

	// Idempotent for the same now
	res, err = e.AutoCloseSweep(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, res.Closed)
	again, err := e.Get(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Winner, again.Winner)
	assert.True(t, again.ClosedAt.Equal(*got.ClosedAt))
}

func TestScenarioAliceBobCarolDave(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()

	d, err := e.Create(ctx, CreateInput{Title: "A", Content: "B", Author: "alice"})
	require.NoError(t, err)
	d, err = e.RegisterRebuttal(ctx, d.ID, RebuttalInput{Title: "R", Content: "C", Author: "bob"})
	require.NoError(t, err)

	d, err = e.Vote(ctx, d.ID, "carol", "author")
	require.NoError(t, err)
	assert.Equal(t, 1, d.AuthorVotes)
	assert.Equal(t, 0, d.RebuttalVotes)

	_, err = e.AutoCloseSweep(ctx, d.RebuttalAt.Add(13*time.Hour))
	require.NoError(t, err)
	d, err = e.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, d.IsClosed)
	assert.Equal(t, store.WinnerAuthor, d.Winner)

	_, err = e.Vote(ctx, d.ID, "dave", "rebuttal")
	assert.ErrorIs(t, err, apperr.ErrAlreadyClosed)
}

func TestListSweepsExpired(t *testing.T) {
	e, clk, _ := setupEngine(t)
	ctx := context.Background()

	d := rebutted(t, e)
	clk.Advance(time.Minute)
	newer, err := e.Create(ctx, CreateInput{Title: "newer", Content: "x"})
	require.NoError(t, err)

	clk.Advance(12 * time.Hour)
	list, err := e.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, d.ID, list[1].ID)
	assert.True(t, list[1].IsClosed)
	assert.Equal(t, store.WinnerDraw, list[1].Winner)
}

func TestUpdate(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()

	d, err := e.Create(ctx, CreateInput{Title: "A", Content: "B", Author: "alice"})
	require.NoError(t, err)

	d, err = e.Update(ctx, d.ID, " A2 ", " B2 ")
	require.NoError(t, err)
	assert.Equal(t, "A2", d.Title)
	assert.Equal(t, "B2", d.Content)

	_, err = e.Update(ctx, d.ID, "", "B")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.Update(ctx, "missing", "A", "B")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	r := rebutted(t, e)
	_, err = e.Update(ctx, r.ID, "A", "B")
	assert.ErrorIs(t, err, apperr.ErrLockedForEditing)

	closed, err := e.Create(ctx, CreateInput{Title: "A", Content: "B"})
	require.NoError(t, err)
	_, err = e.Close(ctx, closed.ID)
	require.NoError(t, err)
	_, err = e.Update(ctx, closed.ID, "A", "B")
	assert.ErrorIs(t, err, apperr.ErrLockedForEditing)
}

func TestDelete(t *testing.T) {
	e, _, s := setupEngine(t)
	ctx := context.Background()

	d := rebutted(t, e)
	_, err := e.Vote(ctx, d.ID, "carol", "author")
	require.NoError(t, err)
	require.NoError(t, s.SaveComment(ctx, &store.Comment{DebateID: d.ID, Author: "x", Text: "y", CreatedAt: t0}))

	require.NoError(t, e.Delete(ctx, d.ID))

	_, err = e.Get(ctx, d.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	comments, err := s.FindCommentsByDebate(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	assert.ErrorIs(t, e.Delete(ctx, d.ID), apperr.ErrNotFound)
}

func TestLikeDislike(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()

	d, err := e.Create(ctx, CreateInput{Title: "A", Content: "B"})
	require.NoError(t, err)

	_, err = e.Like(ctx, d.ID)
	require.NoError(t, err)
	_, err = e.Like(ctx, d.ID)
	require.NoError(t, err)
	d, err = e.Dislike(ctx, d.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, d.Likes)
	assert.Equal(t, 1, d.Dislikes)
	assert.Zero(t, d.AuthorVotes)

	_, err = e.Like(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentVotes(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()
	d := rebutted(t, e)

	const voters = 20
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			side := "author"
			if i%2 == 1 {
				side = "rebuttal"
			}
			_, err := e.Vote(ctx, d.ID, fmt.Sprintf("voter-%d", i), side)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := e.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, voters/2, got.AuthorVotes)
	assert.Equal(t, voters/2, got.RebuttalVotes)
	assert.Len(t, got.Voters, voters)
}

func TestConcurrentDuplicateVotes(t *testing.T) {
	e, _, _ := setupEngine(t)
	ctx := context.Background()
	d := rebutted(t, e)

	const attempts = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		okay int
		dups int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Vote(ctx, d.ID, "carol", "author")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okay++
			case errors.Is(err, apperr.ErrDuplicateVote):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, okay)
	assert.Equal(t, attempts-1, dups)

	got, err := e.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AuthorVotes)
}

// failingStore fails saves for one debate id
type failingStore struct {
	store.DebateStore
	failID string
}

func (f *failingStore) SaveDebate(ctx context.Context, d *store.Debate) error {
	if d.ID == f.failID {
		return errors.New("disk full")
	}
	return f.DebateStore.SaveDebate(ctx, d)
}

func TestAutoCloseSweepSkipsFailures(t *testing.T) {
	s := setupTestDB(t)
	clk := clock.NewManual(t0)
	ctx := context.Background()

	setup := New(s, clk, Options{Logger: quietLogger()})
	bad := rebutted(t, setup)
	good := rebutted(t, setup)

	e := New(&failingStore{DebateStore: s, failID: bad.ID}, clk, Options{Logger: quietLogger()})
	res, err := e.AutoCloseSweep(ctx, t0.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{good.ID}, res.Closed)
	assert.Equal(t, []string{bad.ID}, res.Failed)

	got, err := s.FindDebate(ctx, bad.ID)
	require.NoError(t, err)
	assert.False(t, got.IsClosed)
}

func TestSweeperRun(t *testing.T) {
	e, clk, s := setupEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := rebutted(t, e)
	clk.Advance(12 * time.Hour)

	done := make(chan error, 1)
	go func() {
		done <- NewSweeper(e, 10*time.Millisecond, quietLogger()).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		got, err := s.FindDebate(context.Background(), d.ID)
		return err == nil && got != nil && got.IsClosed
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRejectedVoteDoesNotLogReopen(t *testing.T) {
	s := setupTestDB(t)
	clk := clock.NewManual(t0)
	ctx := context.Background()

	var buf bytes.Buffer
	e := New(s, clk, Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))})

	d := rebutted(t, e)
	_, err := e.Vote(ctx, d.ID, "carol", "author")
	require.NoError(t, err)
	_, err = e.Close(ctx, d.ID)
	require.NoError(t, err)

	buf.Reset()
	_, err = e.Vote(ctx, d.ID, "carol", "rebuttal")
	assert.ErrorIs(t, err, apperr.ErrDuplicateVote)
	assert.False(t, strings.Contains(buf.String(), "reopening"), buf.String())

	_, err = e.Vote(ctx, d.ID, "dave", "rebuttal")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "reopening")
}

func TestSweeperNonPositiveInterval(t *testing.T) {
	e, clk, s := setupEngine(t)

	for _, interval := range []time.Duration{0, -time.Second} {
		sw := NewSweeper(e, interval, quietLogger())
		assert.Equal(t, DefaultSweepInterval, sw.interval)
	}

	d := rebutted(t, e)
	clk.Advance(12 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewSweeper(e, 0, quietLogger()).Run(ctx)
	}()

	// Run must not panic; cancel it and expect a clean stop
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}

	got, err := s.FindDebate(context.Background(), d.ID)
	require.NoError(t, err)
	assert.False(t, got.IsClosed, "no tick within a minute")
}
