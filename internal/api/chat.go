package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/alphabot-ai/debateboard/internal/presence"
)

type JoinChatRequest struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
}

type JoinChatResponse struct {
	SessionID string            `json:"session_id"`
	Users     presence.Snapshot `json:"users"`
}

type LeaveChatRequest struct {
	SessionID string `json:"session_id"`
}

type ChatMessageRequest struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type ChatUsersResponse struct {
	Users presence.Snapshot `json:"users"`
}

// JoinChat handles POST /api/chat/join. A session id is issued when none is given.
func (h *Handler) JoinChat(w http.ResponseWriter, r *http.Request) {
	var req JoinChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	snap, err := h.hub.Join(r.Context(), req.SessionID, req.DisplayName, ClientAddress(r))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JoinChatResponse{SessionID: req.SessionID, Users: snap})
}

// LeaveChat handles POST /api/chat/leave
func (h *Handler) LeaveChat(w http.ResponseWriter, r *http.Request) {
	var req LeaveChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	snap := h.hub.Leave(r.Context(), req.SessionID)
	writeJSON(w, http.StatusOK, ChatUsersResponse{Users: snap})
}

// SendChat handles POST /api/chat/messages
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	var req ChatMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ev, err := h.hub.Say(r.Context(), req.Sender, req.Message)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ev)
}

// ChatUsers handles GET /api/chat/users
func (h *Handler) ChatUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ChatUsersResponse{Users: h.hub.Registry().Snapshot()})
}
