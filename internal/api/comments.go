package api

import (
	"net/http"

	"github.com/alphabot-ai/debateboard/internal/comments"
	"github.com/alphabot-ai/debateboard/internal/store"
)

type CreateCommentRequest struct {
	ParentID string `json:"parent_id,omitempty"`
	Author   string `json:"author"`
	Text     string `json:"text"`
}

type CommentTreeResponse struct {
	Comments []*store.Comment `json:"comments"`
}

type CommentCountResponse struct {
	Count int `json:"count"`
}

type DeleteCommentResponse struct {
	Deleted int `json:"deleted"`
}

// CommentTree handles GET /api/debates/{id}/comments/tree
func (h *Handler) CommentTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.comments.Tree(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CommentTreeResponse{Comments: tree})
}

// CommentCount handles GET /api/debates/{id}/comments/count
func (h *Handler) CommentCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.comments.Count(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CommentCountResponse{Count: n})
}

// CreateComment handles POST /api/debates/{id}/comments. A parent_id makes it a reply.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	h.postComment(w, r, req.ParentID, req)
}

// CreateReply handles POST /api/debates/{id}/comments/{parentId}/reply
func (h *Handler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	h.postComment(w, r, r.PathValue("parentId"), req)
}

func (h *Handler) postComment(w http.ResponseWriter, r *http.Request, parentID string, req CreateCommentRequest) {
	in := comments.Input{
		Author:    req.Author,
		Text:      req.Text,
		IPAddress: ClientAddress(r),
	}

	var (
		c   *store.Comment
		err error
	)
	if parentID == "" {
		c, err = h.comments.Add(r.Context(), r.PathValue("id"), in)
	} else {
		c, err = h.comments.Reply(r.Context(), r.PathValue("id"), parentID, in)
	}
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// DeleteComment handles DELETE /api/debates/{id}/comments/{commentId}
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	n, err := h.comments.Delete(r.Context(), r.PathValue("id"), r.PathValue("commentId"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteCommentResponse{Deleted: n})
}
