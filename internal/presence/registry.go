// Package presence tracks who is connected to the chat feed. State lives in memory for
// the lifetime of the process and is never persisted.
package presence

import (
	"sort"
	"sync"

	"github.com/alphabot-ai/debateboard/internal/metrics"
)

// Entry is one live connection
type Entry struct {
	SessionID     string `json:"session_id"`
	DisplayName   string `json:"display_name"`
	SourceAddress string `json:"source_address"`
}

// Snapshot is the registry content ordered by display name
type Snapshot []Entry

// Names returns the display names in snapshot order
func (s Snapshot) Names() []string {
	names := make([]string, len(s))
	for i, e := range s {
		names[i] = e.DisplayName
	}
	return names
}

// Registry maps session ids to entries. A display name is held by at most one session;
// the latest join for a name wins.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Join registers a session, evicting any other session using the same display name
func (r *Registry) Join(sessionID, displayName, sourceAddress string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.entries {
		if e.DisplayName == displayName {
			delete(r.entries, id)
		}
	}
	r.entries[sessionID] = Entry{
		SessionID:     sessionID,
		DisplayName:   displayName,
		SourceAddress: sourceAddress,
	}

	metrics.PresenceOnline.Set(float64(len(r.entries)))
	return r.snapshotLocked()
}

// Leave removes the session. The bool is false when it was not registered.
func (r *Registry) Leave(sessionID string) (Entry, bool, Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if ok {
		delete(r.entries, sessionID)
		metrics.PresenceOnline.Set(float64(len(r.entries)))
	}
	return e, ok, r.snapshotLocked()
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) snapshotLocked() Snapshot {
	snap := make(Snapshot, 0, len(r.entries))
	for _, e := range r.entries {
		snap = append(snap, e)
	}
	sort.Slice(snap, func(i, j int) bool {
		if snap[i].DisplayName != snap[j].DisplayName {
			return snap[i].DisplayName < snap[j].DisplayName
		}
		return snap[i].SessionID < snap[j].SessionID
	})
	return snap
}
