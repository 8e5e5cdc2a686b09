package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hrmate/hrmate/internal/hrerr"
	"github.com/hrmate/hrmate/internal/session"
)

const (
	defaultSessionPageSize = 20
	maxSessionPageSize     = 100
)

type sessionHandler struct {
	store  SessionStore
	memory Memory
	logger *slog.Logger
}

type sessionView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageView struct {
	ID             string           `json:"id"`
	Role           string           `json:"role"`
	Content        string           `json:"content"`
	AgentUsed      string           `json:"agent_used,omitempty"`
	Sources        []session.Source `json:"sources,omitempty"`
	SequenceNumber int64            `json:"sequence_number"`
	CreatedAt      time.Time        `json:"created_at"`
}

// list handles GET /api/v1/sessions.
func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	employeeID := employeeIDFromContext(r.Context())
	limit := queryInt(r, "limit", defaultSessionPageSize, maxSessionPageSize)
	offset := queryInt(r, "offset", 0, 1<<30)

	sessions, err := h.store.Sessions(r.Context(), employeeID, int32(limit), int32(offset))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, newSessionView(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views}, h.logger)
}

// get handles GET /api/v1/sessions/{id}.
func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess), h.logger)
}

// messages handles GET /api/v1/sessions/{id}/messages.
func (h *sessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 0, 1000)

	msgs, err := h.store.Messages(r.Context(), sess.ID, int32(limit))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{
			ID:             m.ID.String(),
			Role:           string(m.Role),
			Content:        m.Content,
			AgentUsed:      m.AgentUsed,
			Sources:        m.Sources,
			SequenceNumber: m.SequenceNumber,
			CreatedAt:      m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views}, h.logger)
}

// delete handles DELETE /api/v1/sessions/{id}. Messages cascade in the
// database; the memory cache entry is dropped alongside.
func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteSession(r.Context(), sess.ID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	h.memory.Clear(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ownedSession parses the path ID, loads the session, and enforces
// ownership. Foreign sessions look exactly like missing ones.
func (h *sessionHandler) ownedSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, hrerr.Validationf("session id is not a valid UUID"), h.logger)
		return nil, false
	}
	sess, err := h.store.Session(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return nil, false
	}
	if sess.UserID != employeeIDFromContext(r.Context()) {
		writeDomainError(w, hrerr.NotFoundf("session %s not found", id), h.logger)
		return nil, false
	}
	return sess, true
}

func newSessionView(s *session.Session) sessionView {
	return sessionView{
		ID:        s.ID.String(),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// queryInt reads a non-negative integer query parameter with a default
// and an upper bound.
func queryInt(r *http.Request, name string, def, maxVal int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	if n > maxVal {
		return maxVal
	}
	return n
}
