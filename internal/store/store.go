package store

import "context"

// DebateStore persists debates keyed by id. Find methods return nil, nil when the
// debate does not exist.
type DebateStore interface {
	// SaveDebate inserts or replaces the debate and its voter set atomically.
	// An empty ID is assigned by the store.
	SaveDebate(ctx context.Context, debate *Debate) error
	FindDebate(ctx context.Context, id string) (*Debate, error)
	FindAllDebates(ctx context.Context) ([]*Debate, error)
	// DeleteDebate removes the debate together with its comments and voters
	DeleteDebate(ctx context.Context, id string) error
}

// CommentStore persists comments. The parent relation must stay acyclic: a comment
// can only be saved under a parent that already exists, and parent ids never change.
type CommentStore interface {
	SaveComment(ctx context.Context, comment *Comment) error
	FindTopLevelComments(ctx context.Context, debateID string) ([]*Comment, error)
	FindCommentsByParent(ctx context.Context, parentID string) ([]*Comment, error)
	FindCommentInDebate(ctx context.Context, id, debateID string) (*Comment, error)
	// FindCommentsByDebate returns the flat comment set of a debate, oldest first
	FindCommentsByDebate(ctx context.Context, debateID string) ([]*Comment, error)
	DeleteComments(ctx context.Context, ids []string) error
}

// Store is the full persistence surface
type Store interface {
	DebateStore
	CommentStore

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
