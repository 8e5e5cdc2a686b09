package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerConfig wires the API server.
type ServerConfig struct {
	Logger     *slog.Logger
	Processor  Processor     // Required
	Sessions   SessionStore  // Required
	Memory     Memory        // Required
	Leave      LeaveService  // Required
	Pool       *pgxpool.Pool // Optional: nil disables the database check in /ready
	TrustProxy bool          // Trust X-Real-IP/X-Forwarded-For (behind a reverse proxy)
	RateBurst  int           // Per-IP burst size (0 = default 60)
	Now        func() time.Time
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Processor == nil {
		return nil, errors.New("processor is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Memory == nil {
		return nil, errors.New("memory is required")
	}
	if cfg.Leave == nil {
		return nil, errors.New("leave service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	ch := &chatHandler{
		processor: cfg.Processor,
		sessions:  cfg.Sessions,
		memory:    cfg.Memory,
		logger:    logger,
		now:       now,
	}
	sh := &sessionHandler{store: cfg.Sessions, memory: cfg.Memory, logger: logger}
	lh := &leaveHandler{service: cfg.Leave, logger: logger}

	mux := http.NewServeMux()

	// Chat
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("GET /api/v1/chat/stream", ch.stream)

	// Session CRUD
	mux.HandleFunc("GET /api/v1/sessions", sh.list)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sh.get)
	mux.HandleFunc("GET /api/v1/sessions/{id}/messages", sh.messages)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sh.delete)

	// Leave ledger (manager surface, outside the agent path)
	mux.HandleFunc("GET /api/v1/leave/requests", lh.listRequests)
	mux.HandleFunc("POST /api/v1/leave/requests/{id}/approve", lh.approve)
	mux.HandleFunc("POST /api/v1/leave/requests/{id}/reject", lh.reject)
	mux.HandleFunc("GET /api/v1/leave/balances", lh.listBalances)
	mux.HandleFunc("PUT /api/v1/leave/balances", lh.setBalance)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> RateLimit -> Employee -> Routes
	// RequestID sits above Logging so request_id appears in log lines.
	var handler http.Handler = mux
	handler = employeeMiddleware(logger)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack entirely.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
