package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/hrmate/hrmate/internal/agent"
	"github.com/hrmate/hrmate/internal/hrerr"
	"github.com/hrmate/hrmate/internal/leave"
	"github.com/hrmate/hrmate/internal/session"
	"github.com/hrmate/hrmate/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeProcessor returns a canned result and records what it was asked.
type fakeProcessor struct {
	result      *agent.Result
	gotEmployee string
	gotQuery    string
	gotHistory  []*session.Message
}

func (p *fakeProcessor) Process(_ context.Context, employeeID, query string, history []*session.Message) *agent.Result {
	p.gotEmployee = employeeID
	p.gotQuery = query
	p.gotHistory = history
	if p.result != nil {
		return p.result
	}
	return &agent.Result{Response: "canned answer", AgentUsed: "leave"}
}

// fakeSessions is an in-memory SessionStore.
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
	messages map[uuid.UUID][]*session.Message
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions: make(map[uuid.UUID]*session.Session),
		messages: make(map[uuid.UUID][]*session.Message),
	}
}

func (f *fakeSessions) CreateSession(_ context.Context, userID, title string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &session.Session{ID: uuid.New(), UserID: userID, Title: title, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessions) Session(_ context.Context, id uuid.UUID) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) Sessions(_ context.Context, userID string, limit, offset int32) ([]*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*session.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset >= int32(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	return nil
}

func (f *fakeSessions) Messages(_ context.Context, sessionID uuid.UUID, limit int32) ([]*session.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[sessionID]
	if limit > 0 && int32(len(msgs)) > limit {
		msgs = msgs[int32(len(msgs))-limit:]
	}
	return msgs, nil
}

// fakeMemory implements Memory over fakeSessions' message map.
type fakeMemory struct {
	store     *fakeSessions
	recordErr error
	cleared   []uuid.UUID
}

func (m *fakeMemory) History(ctx context.Context, sessionID uuid.UUID) ([]*session.Message, error) {
	return m.store.Messages(ctx, sessionID, 0)
}

func (m *fakeMemory) Record(_ context.Context, sessionID uuid.UUID, messages ...*session.Message) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.messages[sessionID] = append(m.store.messages[sessionID], messages...)
	return nil
}

func (m *fakeMemory) Clear(sessionID uuid.UUID) {
	m.cleared = append(m.cleared, sessionID)
}

type testServer struct {
	handler   http.Handler
	processor *fakeProcessor
	sessions  *fakeSessions
	memory    *fakeMemory
	leave     *leave.Service
}

func newTestServer(t *testing.T, mutate func(*ServerConfig)) *testServer {
	t.Helper()

	nowFn := func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }
	svc, err := leave.NewService(leave.NewMemStore(), testutil.QuietLogger(), nowFn)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	ts := &testServer{
		processor: &fakeProcessor{},
		sessions:  newFakeSessions(),
		leave:     svc,
	}
	ts.memory = &fakeMemory{store: ts.sessions}

	cfg := ServerConfig{
		Logger:    testutil.QuietLogger(),
		Processor: ts.processor,
		Sessions:  ts.sessions,
		Memory:    ts.memory,
		Leave:     svc,
		RateBurst: 1000,
		Now:       nowFn,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts.handler = srv.Handler()
	return ts
}

// do performs a request as the given employee and returns the recorder.
func (ts *testServer) do(t *testing.T, method, target, employeeID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if employeeID != "" {
		req.Header.Set(employeeHeader, employeeID)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestNewServer_Validation(t *testing.T) {
	svc, err := leave.NewService(leave.NewMemStore(), testutil.QuietLogger(), nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	sessions := newFakeSessions()
	valid := ServerConfig{
		Processor: &fakeProcessor{},
		Sessions:  sessions,
		Memory:    &fakeMemory{store: sessions},
		Leave:     svc,
	}

	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"missing processor", func(c *ServerConfig) { c.Processor = nil }},
		{"missing sessions", func(c *ServerConfig) { c.Sessions = nil }},
		{"missing memory", func(c *ServerConfig) { c.Memory = nil }},
		{"missing leave service", func(c *ServerConfig) { c.Leave = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := NewServer(cfg); err == nil {
				t.Error("NewServer() error = nil, want error")
			}
		})
	}
}

func TestIdentityRequired(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/v1/sessions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Error.Code != "identity_required" {
		t.Errorf("error code = %q", body.Error.Code)
	}
}

func TestHealthProbesSkipIdentity(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/health", "/ready"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/v1/sessions", "emp-001", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := testutil.QuietLogger()
	inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(logger)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Error.Code != "internal_error" {
		t.Errorf("error code = %q", body.Error.Code)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", hrerr.Validationf("bad input"), http.StatusBadRequest, "validation_failed"},
		{"not found", hrerr.NotFoundf("missing"), http.StatusNotFound, "not_found"},
		{"conflict", hrerr.Conflictf("raced"), http.StatusConflict, "conflict"},
		{"external", hrerr.Externalf("down"), http.StatusBadGateway, "upstream_unavailable"},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusForError(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("statusForError() = (%d, %q), want (%d, %q)", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}
