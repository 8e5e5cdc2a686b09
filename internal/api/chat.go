package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hrmate/hrmate/internal/agent"
	"github.com/hrmate/hrmate/internal/hrerr"
	"github.com/hrmate/hrmate/internal/session"
)

// Processor handles one chat turn. It never fails the turn: downstream
// errors come back as a degraded Result.
type Processor interface {
	Process(ctx context.Context, employeeID, query string, history []*session.Message) *agent.Result
}

// SessionStore is the slice of the durable session log this surface
// needs.
type SessionStore interface {
	CreateSession(ctx context.Context, userID, title string) (*session.Session, error)
	Session(ctx context.Context, id uuid.UUID) (*session.Session, error)
	Sessions(ctx context.Context, userID string, limit, offset int32) ([]*session.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	Messages(ctx context.Context, sessionID uuid.UUID, limit int32) ([]*session.Message, error)
}

// Memory hydrates bounded history and persists turns write-through.
type Memory interface {
	History(ctx context.Context, sessionID uuid.UUID) ([]*session.Message, error)
	Record(ctx context.Context, sessionID uuid.UUID, messages ...*session.Message) error
	Clear(sessionID uuid.UUID)
}

const maxChatBody = 1 << 20

type chatHandler struct {
	processor Processor
	sessions  SessionStore
	memory    Memory
	logger    *slog.Logger
	now       func() time.Time
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string           `json:"session_id"`
	Response  string           `json:"response"`
	AgentUsed string           `json:"agent_used"`
	Sources   []session.Source `json:"sources,omitempty"`
	Degraded  bool             `json:"degraded,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required", h.logger)
		return
	}

	employeeID := employeeIDFromContext(r.Context())

	sess, history, err := h.resolveSession(r.Context(), employeeID, req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	result := h.processor.Process(r.Context(), employeeID, req.Message, history)

	h.persistTurn(r.Context(), sess.ID, req.Message, result)

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: sess.ID.String(),
		Response:  result.Response,
		AgentUsed: result.AgentUsed,
		Sources:   result.Sources,
		Degraded:  result.Degraded,
		Timestamp: h.now().UTC(),
	}, h.logger)
}

// SSE event names for the streaming endpoint, in emission order.
const (
	eventSession = "session"
	eventToken   = "token"
	eventDone    = "done"
	eventError   = "error"
)

type sessionEvent struct {
	SessionID string `json:"session_id"`
}

type tokenEvent struct {
	Text string `json:"text"`
}

type doneEvent struct {
	Response  string `json:"response"`
	AgentUsed string `json:"agent_used"`
	Degraded  bool   `json:"degraded,omitempty"`
}

// stream handles GET /api/v1/chat/stream. Events arrive in a fixed
// order: one session, zero or more token, one done. Failures before
// done produce a single error event.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	req := chatRequest{
		SessionID: query.Get("session_id"),
		Message:   query.Get("message"),
	}
	if strings.TrimSpace(req.Message) == "" {
		_ = writeEvent(w, flusher, eventError, errorDetail{Code: "invalid_request", Message: "message is required"})
		return
	}

	employeeID := employeeIDFromContext(r.Context())

	sess, history, err := h.resolveSession(r.Context(), employeeID, req)
	if err != nil {
		_, code := statusForError(err)
		_ = writeEvent(w, flusher, eventError, errorDetail{Code: code, Message: err.Error()})
		return
	}

	if err := writeEvent(w, flusher, eventSession, sessionEvent{SessionID: sess.ID.String()}); err != nil {
		return
	}

	result := h.processor.Process(r.Context(), employeeID, req.Message, history)

	// The orchestrator produces whole answers; stream them out in word
	// chunks so clients render progressively.
	for _, chunk := range chunkWords(result.Response, 8) {
		if err := writeEvent(w, flusher, eventToken, tokenEvent{Text: chunk}); err != nil {
			return
		}
	}

	h.persistTurn(r.Context(), sess.ID, req.Message, result)

	_ = writeEvent(w, flusher, eventDone, doneEvent{
		Response:  result.Response,
		AgentUsed: result.AgentUsed,
		Degraded:  result.Degraded,
	})
}

// resolveSession loads an existing session (verifying ownership) or
// lazily creates one titled from the first message.
func (h *chatHandler) resolveSession(ctx context.Context, employeeID string, req chatRequest) (*session.Session, []*session.Message, error) {
	if req.SessionID == "" {
		sess, err := h.sessions.CreateSession(ctx, employeeID, sessionTitle(req.Message))
		if err != nil {
			return nil, nil, err
		}
		return sess, nil, nil
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, nil, hrerr.Validationf("session_id is not a valid UUID")
	}
	sess, err := h.sessions.Session(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sess.UserID != employeeID {
		// Same shape as a missing session so IDs cannot be probed.
		return nil, nil, hrerr.NotFoundf("session %s not found", id)
	}

	history, err := h.memory.History(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return sess, history, nil
}

// persistTurn writes the user message and the assistant's answer to the
// durable log. A write failure loses history, not the user's answer.
func (h *chatHandler) persistTurn(ctx context.Context, sessionID uuid.UUID, query string, result *agent.Result) {
	err := h.memory.Record(ctx, sessionID,
		session.NewUserMessage(query),
		session.NewAssistantMessage(result.Response, result.AgentUsed, result.Sources, nil),
	)
	if err != nil {
		h.logger.Error("persisting chat turn", "session_id", sessionID, "error", err)
	}
}

// sessionTitle derives a short session title from the first message.
func sessionTitle(message string) string {
	words := strings.Fields(message)
	if len(words) > 8 {
		words = words[:8]
	}
	title := strings.Join(words, " ")
	if len(title) > 60 {
		title = title[:60]
	}
	return title
}

// chunkWords splits text into chunks of at most n words each.
func chunkWords(text string, n int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(words); i += n {
		end := min(i+n, len(words))
		chunk := strings.Join(words[i:end], " ")
		if end < len(words) {
			chunk += " "
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
