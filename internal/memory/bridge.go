// Package memory provides the conversation context window used to build
// agent prompts.
//
// The durable session log is the source of truth; the Bridge keeps a
// bounded per-session cache in front of it so a turn does not hit the
// database twice. Writes go through to the log first and only then touch
// the cache, so a crashed process loses nothing and a cold cache is
// rebuilt from the log on the next read.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hrmate/hrmate/internal/session"
)

// Log is the slice of the session store the bridge needs.
type Log interface {
	AppendMessages(ctx context.Context, sessionID uuid.UUID, messages []*session.Message) error
	Messages(ctx context.Context, sessionID uuid.UUID, limit int32) ([]*session.Message, error)
}

// DefaultWindow is the number of recent messages kept per session.
const DefaultWindow = 20

// maxCachedSessions bounds the bridge's footprint across sessions.
const maxCachedSessions = 256

// Bridge is a write-through conversation cache over the durable log.
//
// Bridge is safe for concurrent use by multiple goroutines.
type Bridge struct {
	log    Log
	window int
	logger *slog.Logger

	mu    sync.Mutex
	cache map[uuid.UUID][]*session.Message
}

// NewBridge creates a Bridge with the given context window size.
// window <= 0 falls back to DefaultWindow.
func NewBridge(log Log, window int, logger *slog.Logger) (*Bridge, error) {
	if log == nil {
		return nil, fmt.Errorf("log is required")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		log:    log,
		window: window,
		logger: logger,
		cache:  make(map[uuid.UUID][]*session.Message),
	}, nil
}

// History returns the session's recent messages, newest last, at most
// window entries. A cache miss reloads from the durable log.
func (b *Bridge) History(ctx context.Context, sessionID uuid.UUID) ([]*session.Message, error) {
	b.mu.Lock()
	if cached, ok := b.cache[sessionID]; ok {
		out := make([]*session.Message, len(cached))
		copy(out, cached)
		b.mu.Unlock()
		return out, nil
	}
	b.mu.Unlock()

	msgs, err := b.log.Messages(ctx, sessionID, int32(b.window))
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	b.mu.Lock()
	b.storeLocked(sessionID, msgs)
	b.mu.Unlock()

	out := make([]*session.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Record appends messages to the durable log, then updates the cache.
// If the append fails the cache is left untouched, so a later History
// call still reflects exactly what the log holds.
func (b *Bridge) Record(ctx context.Context, sessionID uuid.UUID, messages ...*session.Message) error {
	if len(messages) == 0 {
		return nil
	}

	if err := b.log.AppendMessages(ctx, sessionID, messages); err != nil {
		return fmt.Errorf("recording messages: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cached, ok := b.cache[sessionID]
	if !ok {
		// Nothing cached yet; next History rebuilds from the log,
		// picking up these messages with correct ordering.
		return nil
	}
	cached = append(cached, messages...)
	b.storeLocked(sessionID, cached)
	return nil
}

// Clear evicts a session's cache entry. The durable log is untouched;
// the next History call reloads from it.
func (b *Bridge) Clear(sessionID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cache, sessionID)
}

// Window returns the configured context window size.
func (b *Bridge) Window() int {
	return b.window
}

// storeLocked trims to the window and bounds the session count.
// Caller holds b.mu.
func (b *Bridge) storeLocked(sessionID uuid.UUID, msgs []*session.Message) {
	if len(msgs) > b.window {
		msgs = msgs[len(msgs)-b.window:]
	}
	if _, ok := b.cache[sessionID]; !ok && len(b.cache) >= maxCachedSessions {
		// Drop an arbitrary entry; it can always be reloaded.
		for k := range b.cache {
			delete(b.cache, k)
			break
		}
		b.logger.Debug("evicted cached session", "cached", len(b.cache))
	}
	stored := make([]*session.Message, len(msgs))
	copy(stored, msgs)
	b.cache[sessionID] = stored
}
