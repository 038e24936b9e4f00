package api

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alphabot-ai/debateboard/internal/debate"
	"github.com/alphabot-ai/debateboard/internal/store"
)

// DebateView is a debate with its derived lifecycle fields
type DebateView struct {
	*store.Debate
	State    debate.State `json:"state"`
	ClosesAt *time.Time   `json:"closes_at,omitempty"`
	ClosesIn string       `json:"closes_in,omitempty"`
}

type ListDebatesResponse struct {
	Debates []DebateView `json:"debates"`
}

type UpdateDebateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type VoteRequest struct {
	Type  string `json:"type"`
	Voter string `json:"voter"`
}

func (h *Handler) view(d *store.Debate) DebateView {
	v := DebateView{Debate: d, State: debate.StateOf(d)}
	if closesAt, ok := h.debates.ClosesAt(d); ok {
		v.ClosesAt = &closesAt
		v.ClosesIn = humanize.RelTime(closesAt, h.clock.Now(), "ago", "from now")
	}
	return v
}

// ListDebates handles GET /api/debates
func (h *Handler) ListDebates(w http.ResponseWriter, r *http.Request) {
	debates, err := h.debates.List(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	views := make([]DebateView, 0, len(debates))
	for _, d := range debates {
		views = append(views, h.view(d))
	}
	writeJSON(w, http.StatusOK, ListDebatesResponse{Debates: views})
}

// CreateDebate handles POST /api/debates
func (h *Handler) CreateDebate(w http.ResponseWriter, r *http.Request) {
	var req debate.CreateInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	d, err := h.debates.Create(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(d))
}

// GetDebate handles GET /api/debates/{id}
func (h *Handler) GetDebate(w http.ResponseWriter, r *http.Request) {
	d, err := h.debates.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(d))
}

// UpdateDebate handles PUT /api/debates/{id}
func (h *Handler) UpdateDebate(w http.ResponseWriter, r *http.Request) {
	var req UpdateDebateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	d, err := h.debates.Update(r.Context(), r.PathValue("id"), req.Title, req.Content)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(d))
}

// DeleteDebate handles DELETE /api/debates/{id}
func (h *Handler) DeleteDebate(w http.ResponseWriter, r *http.Request) {
	if err := h.debates.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateRebuttal handles POST /api/debates/{id}/rebuttal
func (h *Handler) CreateRebuttal(w http.ResponseWriter, r *http.Request) {
	var req debate.RebuttalInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	d, err := h.debates.RegisterRebuttal(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(d))
}

// CloseDebate handles PATCH /api/debates/{id}/close
func (h *Handler) CloseDebate(w http.ResponseWriter, r *http.Request) {
	d, err := h.debates.Close(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(d))
}

// Vote handles POST /api/debates/{id}/vote
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	d, err := h.debates.Vote(r.Context(), r.PathValue("id"), req.Voter, req.Type)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(d))
}

// Like handles POST /api/debates/{id}/like
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	d, err := h.debates.Like(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(d))
}

// Dislike handles POST /api/debates/{id}/dislike
func (h *Handler) Dislike(w http.ResponseWriter, r *http.Request) {
	d, err := h.debates.Dislike(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(d))
}
