// Package comments manages the comment threads of a debate. Comments are stored flat
// with a parent id; the nested view is rebuilt on every read.
package comments

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alphabot-ai/debateboard/internal/apperr"
	"github.com/alphabot-ai/debateboard/internal/clock"
	"github.com/alphabot-ai/debateboard/internal/metrics"
	"github.com/alphabot-ai/debateboard/internal/store"
)

// Input is a new comment or reply
type Input struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	IPAddress string `json:"-"`
}

type Engine struct {
	debates  store.DebateStore
	comments store.CommentStore
	clock    clock.Clock
	logger   *slog.Logger
}

func New(debates store.DebateStore, comments store.CommentStore, c clock.Clock, logger *slog.Logger) *Engine {
	if c == nil {
		c = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		debates:  debates,
		comments: comments,
		clock:    c,
		logger:   logger.With("component", "comments"),
	}
}

// Tree returns the top-level comments of a debate with their replies nested, siblings
// ordered oldest first at every level
func (e *Engine) Tree(ctx context.Context, debateID string) ([]*store.Comment, error) {
	if err := e.requireDebate(ctx, debateID); err != nil {
		return nil, err
	}

	flat, err := e.comments.FindCommentsByDebate(ctx, debateID)
	if err != nil {
		return nil, apperr.Internal("load comments", err)
	}
	return buildTree(flat), nil
}

// Count returns the number of comments in a debate
func (e *Engine) Count(ctx context.Context, debateID string) (int, error) {
	if err := e.requireDebate(ctx, debateID); err != nil {
		return 0, err
	}

	flat, err := e.comments.FindCommentsByDebate(ctx, debateID)
	if err != nil {
		return 0, apperr.Internal("load comments", err)
	}
	return len(flat), nil
}

// Add posts a top-level comment
func (e *Engine) Add(ctx context.Context, debateID string, in Input) (*store.Comment, error) {
	if err := e.requireDebate(ctx, debateID); err != nil {
		return nil, err
	}

	c, err := e.newComment(debateID, "", in)
	if err != nil {
		return nil, err
	}
	if err := e.comments.SaveComment(ctx, c); err != nil {
		return nil, apperr.Internal("save comment", err)
	}

	metrics.Comments.WithLabelValues("add").Inc()
	return c, nil
}

// Reply posts a reply under parentID, which must belong to the same debate
func (e *Engine) Reply(ctx context.Context, debateID, parentID string, in Input) (*store.Comment, error) {
	if err := e.requireDebate(ctx, debateID); err != nil {
		return nil, err
	}

	parent, err := e.comments.FindCommentInDebate(ctx, parentID, debateID)
	if err != nil {
		return nil, apperr.Internal("find parent comment", err)
	}
	if parent == nil {
		return nil, apperr.New(apperr.KindParentNotFound, "parent comment not found")
	}

	c, err := e.newComment(debateID, parent.ID, in)
	if err != nil {
		return nil, err
	}
	if err := e.comments.SaveComment(ctx, c); err != nil {
		return nil, apperr.Internal("save reply", err)
	}

	metrics.Comments.WithLabelValues("reply").Inc()
	return c, nil
}

// Delete removes a comment of debateID together with its replies and returns how many
// comments were removed. A comment of another debate is reported as not found.
func (e *Engine) Delete(ctx context.Context, debateID, commentID string) (int, error) {
	target, err := e.comments.FindCommentInDebate(ctx, commentID, debateID)
	if err != nil {
		return 0, apperr.Internal("find comment", err)
	}
	if target == nil {
		return 0, apperr.New(apperr.KindNotFound, "comment not found")
	}

	flat, err := e.comments.FindCommentsByDebate(ctx, debateID)
	if err != nil {
		return 0, apperr.Internal("load comments", err)
	}

	ids := subtreeIDs(childIndex(flat), target.ID)
	if err := e.comments.DeleteComments(ctx, ids); err != nil {
		return 0, apperr.Internal("delete comments", err)
	}

	metrics.Comments.WithLabelValues("delete").Add(float64(len(ids)))
	e.logger.Info("comments deleted", "debate_id", debateID, "comment_id", commentID, "count", len(ids))
	return len(ids), nil
}

func (e *Engine) requireDebate(ctx context.Context, debateID string) error {
	d, err := e.debates.FindDebate(ctx, debateID)
	if err != nil {
		return apperr.Internal("find debate", err)
	}
	if d == nil {
		return apperr.New(apperr.KindNotFound, "debate not found")
	}
	return nil
}

func (e *Engine) newComment(debateID, parentID string, in Input) (*store.Comment, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperr.New(apperr.KindValidation, "text is required")
	}
	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = store.Anonymous
	}

	return &store.Comment{
		DebateID:  debateID,
		ParentID:  parentID,
		Author:    author,
		Text:      text,
		IPAddress: in.IPAddress,
		CreatedAt: e.clock.Now(),
	}, nil
}
