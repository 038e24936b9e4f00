// Package apperr defines the typed failures returned by the debate board core.
//
// Every rejection carries a Kind, which is the contract callers branch on, and a
// human-readable Message. Store and I/O failures are reported with KindInternal so the
// request layer can tell them apart from domain outcomes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindNotFound          Kind = "not_found"
	KindParentNotFound    Kind = "parent_not_found"
	KindAlreadyRebutted   Kind = "already_rebutted"
	KindAlreadyClosed     Kind = "already_closed"
	KindNoRebuttalYet     Kind = "no_rebuttal_yet"
	KindInvalidVoteType   Kind = "invalid_vote_type"
	KindSelfVoteForbidden Kind = "self_vote_forbidden"
	KindDuplicateVote     Kind = "duplicate_vote"
	KindLockedForEditing  Kind = "locked_for_editing"
	KindInternal          Kind = "internal"
)

// Error is a typed failure
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrParentNotFound    = &Error{Kind: KindParentNotFound}
	ErrAlreadyRebutted   = &Error{Kind: KindAlreadyRebutted}
	ErrAlreadyClosed     = &Error{Kind: KindAlreadyClosed}
	ErrNoRebuttalYet     = &Error{Kind: KindNoRebuttalYet}
	ErrInvalidVoteType   = &Error{Kind: KindInvalidVoteType}
	ErrSelfVoteForbidden = &Error{Kind: KindSelfVoteForbidden}
	ErrDuplicateVote     = &Error{Kind: KindDuplicateVote}
	ErrLockedForEditing  = &Error{Kind: KindLockedForEditing}
	ErrInternal          = &Error{Kind: KindInternal}
)

// New creates a domain failure
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a domain failure with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an infrastructure failure
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable reason carried by err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}
