package debate

import (
	"time"

	"github.com/alphabot-ai/debateboard/internal/store"
)

// State of a debate in its lifecycle
type State string

const (
	StateOpen     State = "open"
	StateRebutted State = "rebutted"
	StateClosed   State = "closed"
)

// StateOf derives the lifecycle state from the rebuttal and close fields
func StateOf(d *store.Debate) State {
	switch {
	case d.IsClosed:
		return StateClosed
	case d.HasRebuttal():
		return StateRebutted
	default:
		return StateOpen
	}
}

// Side a voter can back
type Side string

const (
	SideAuthor   Side = "author"
	SideRebuttal Side = "rebuttal"
)

// ParseSide validates a vote type
func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case SideAuthor, SideRebuttal:
		return Side(s), true
	}
	return "", false
}

// windowElapsed reports whether the voting window opened by the rebuttal is over at now.
// Debates without a rebuttal have no window.
func windowElapsed(d *store.Debate, window time.Duration, now time.Time) bool {
	if d.RebuttalAt == nil {
		return false
	}
	return now.Sub(*d.RebuttalAt) >= window
}
