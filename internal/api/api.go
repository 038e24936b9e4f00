package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/alphabot-ai/debateboard/internal/apperr"
	"github.com/alphabot-ai/debateboard/internal/clock"
	"github.com/alphabot-ai/debateboard/internal/comments"
	"github.com/alphabot-ai/debateboard/internal/config"
	"github.com/alphabot-ai/debateboard/internal/debate"
	"github.com/alphabot-ai/debateboard/internal/presence"
	"github.com/alphabot-ai/debateboard/internal/ratelimit"
	"github.com/alphabot-ai/debateboard/internal/store"
)

// Deps are the collaborators of the API handlers
type Deps struct {
	Store    store.Store
	Debates  *debate.Engine
	Comments *comments.Engine
	Hub      *presence.Hub
	Limiter  ratelimit.Limiter
	Clock    clock.Clock
	Config   *config.Config
	Logger   *slog.Logger
}

// Handler holds dependencies for API handlers
type Handler struct {
	store    store.Store
	debates  *debate.Engine
	comments *comments.Engine
	hub      *presence.Hub
	limiter  ratelimit.Limiter
	clock    clock.Clock
	cfg      *config.Config
	logger   *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{
		store:    d.Store,
		debates:  d.Debates,
		comments: d.Comments,
		hub:      d.Hub,
		limiter:  d.Limiter,
		clock:    d.Clock,
		cfg:      d.Config,
		logger:   d.Logger,
	}
}

// Response helpers

type ErrorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeRateLimited(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:      "rate limit exceeded",
		RetryAfter: retryAfter,
	})
}

// StatusOf maps a failure kind to its HTTP status
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidVoteType, apperr.KindNoRebuttalYet:
		return http.StatusBadRequest
	case apperr.KindNotFound, apperr.KindParentNotFound:
		return http.StatusNotFound
	case apperr.KindSelfVoteForbidden:
		return http.StatusForbidden
	case apperr.KindAlreadyRebutted, apperr.KindAlreadyClosed, apperr.KindDuplicateVote, apperr.KindLockedForEditing:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure answers with the status of err's kind. Internal failures are logged and
// their details withheld.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := StatusOf(kind)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, ErrorResponse{Error: "internal error", Kind: string(apperr.KindInternal)})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: apperr.MessageOf(err), Kind: string(kind)})
}

// Request helpers

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ClientAddress is the first X-Forwarded-For entry, or the connection address
// without its port
func ClientAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// checkRateLimit consumes one request for action from the client's bucket and reports
// the remaining budget in X-RateLimit-Remaining
func (h *Handler) checkRateLimit(w http.ResponseWriter, r *http.Request, action string, limit int) (bool, int) {
	key := action + ":" + ClientAddress(r)
	window := h.cfg.RateLimitWindow

	allowed := h.limiter.Allow(key, limit, window)
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(h.limiter.Remaining(key, limit, window)))
	if !allowed {
		retryAfter := int(h.limiter.RetryAfter(key, window).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter
	}

	return true, 0
}

// rateLimited wraps next with the limit for action
func (h *Handler) rateLimited(action string, limit func(*config.Config) int, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := h.checkRateLimit(w, r, action, limit(h.cfg))
		if !allowed {
			writeRateLimited(w, retryAfter)
			return
		}
		next(w, r)
	}
}
