package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alphabot-ai/debateboard/internal/config"
)

func debateLimit(c *config.Config) int  { return c.DebateRateLimit }
func commentLimit(c *config.Config) int { return c.CommentRateLimit }
func voteLimit(c *config.Config) int    { return c.VoteRateLimit }
func chatLimit(c *config.Config) int    { return c.ChatRateLimit }

// Routes registers every endpoint and wraps the mux with request logging
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Debates
	mux.HandleFunc("GET /api/debates", h.ListDebates)
	mux.HandleFunc("POST /api/debates", h.rateLimited("debate", debateLimit, h.CreateDebate))
	mux.HandleFunc("GET /api/debates/{id}", h.GetDebate)
	mux.HandleFunc("PUT /api/debates/{id}", h.rateLimited("debate", debateLimit, h.UpdateDebate))
	mux.HandleFunc("DELETE /api/debates/{id}", h.DeleteDebate)
	mux.HandleFunc("POST /api/debates/{id}/rebuttal", h.rateLimited("debate", debateLimit, h.CreateRebuttal))
	mux.HandleFunc("PATCH /api/debates/{id}/close", h.CloseDebate)
	mux.HandleFunc("POST /api/debates/{id}/vote", h.rateLimited("vote", voteLimit, h.Vote))
	mux.HandleFunc("POST /api/debates/{id}/like", h.rateLimited("vote", voteLimit, h.Like))
	mux.HandleFunc("POST /api/debates/{id}/dislike", h.rateLimited("vote", voteLimit, h.Dislike))

	// Comments
	mux.HandleFunc("GET /api/debates/{id}/comments/tree", h.CommentTree)
	mux.HandleFunc("GET /api/debates/{id}/comments/count", h.CommentCount)
	mux.HandleFunc("POST /api/debates/{id}/comments", h.rateLimited("comment", commentLimit, h.CreateComment))
	mux.HandleFunc("POST /api/debates/{id}/comments/{parentId}/reply", h.rateLimited("comment", commentLimit, h.CreateReply))
	mux.HandleFunc("DELETE /api/debates/{id}/comments/{commentId}", h.DeleteComment)

	// Chat
	mux.HandleFunc("POST /api/chat/join", h.rateLimited("chat", chatLimit, h.JoinChat))
	mux.HandleFunc("POST /api/chat/leave", h.LeaveChat)
	mux.HandleFunc("POST /api/chat/messages", h.rateLimited("chat", chatLimit, h.SendChat))
	mux.HandleFunc("GET /api/chat/users", h.ChatUsers)

	return h.LogRequests(mux)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
