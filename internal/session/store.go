package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const sessionCols = `id, user_id, title, metadata, created_at, updated_at`

const messageCols = `id, session_id, role, content, sources, agent_used,
	confidence, sequence_number, created_at`

// Store manages session persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a session Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// CreateSession creates a new conversation session for a user.
func (s *Store) CreateSession(ctx context.Context, userID, title string) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	id := uuid.New()
	row := s.pool.QueryRow(ctx, `INSERT INTO sessions (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING `+sessionCols, id, userID, title)

	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "user_id", userID)
	return sess, nil
}

// Session retrieves a session by ID. Returns ErrNotFound if it does not
// exist.
func (s *Store) Session(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionCols+` FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return sess, nil
}

// Sessions lists a user's sessions ordered by most recent activity.
func (s *Store) Sessions(ctx context.Context, userID string, limit, offset int32) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionCols+` FROM sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// UpdateTitle renames a session.
func (s *Store) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sessions SET title = $2, updated_at = now()
		WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("updating session title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSession deletes a session and its messages (CASCADE).
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

// AppendMessages appends messages to a session's log in one transaction.
// The session row is locked with SELECT ... FOR UPDATE so concurrent
// appends to the same session serialize and sequence numbers stay gapless.
func (s *Store) AppendMessages(ctx context.Context, sessionID uuid.UUID, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}
	for _, m := range messages {
		if !validRoles[m.Role] {
			return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return fmt.Errorf("locking session: %w", err)
	}

	var maxSeq int64
	err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(sequence_number), 0) FROM messages
		WHERE session_id = $1`, sessionID).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("getting max sequence number: %w", err)
	}

	for i, m := range messages {
		m.SessionID = sessionID
		m.SequenceNumber = maxSeq + int64(i) + 1
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}

		sources := m.Sources
		if sources == nil {
			sources = []Source{}
		}
		sourcesJSON, err := json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("marshaling sources: %w", err)
		}

		_, err = tx.Exec(ctx, `INSERT INTO messages
			(id, session_id, role, content, sources, agent_used, confidence, sequence_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.ID, m.SessionID, m.Role, m.Content, sourcesJSON,
			m.AgentUsed, m.Confidence, m.SequenceNumber)
		if err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE sessions SET updated_at = now() WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("appended messages", "session_id", sessionID, "count", len(messages))
	return nil
}

// Messages returns the most recent limit messages of a session in
// chronological order. limit <= 0 returns the full log.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit int32) ([]*Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.pool.Query(ctx, `SELECT `+messageCols+` FROM (
			SELECT `+messageCols+` FROM messages
			WHERE session_id = $1
			ORDER BY sequence_number DESC
			LIMIT $2
		) recent ORDER BY sequence_number ASC`, sessionID, limit)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+messageCols+` FROM messages
			WHERE session_id = $1
			ORDER BY sequence_number ASC`, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// SearchMessages finds a user's messages whose content matches the query,
// most recent first. Matching is case-insensitive substring search.
func (s *Store) SearchMessages(ctx context.Context, userID, query string, limit int32) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT m.id, m.session_id, m.role, m.content, m.sources,
			m.agent_used, m.confidence, m.sequence_number, m.created_at
		FROM messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE s.user_id = $1 AND m.content ILIKE '%' || $2 || '%'
		ORDER BY m.created_at DESC
		LIMIT $3`, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		sess     Session
		metadata []byte
	)
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Title, &metadata,
		&sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &sess.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &sess, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var (
		m       Message
		sources []byte
	)
	if err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &sources,
		&m.AgentUsed, &m.Confidence, &m.SequenceNumber, &m.CreatedAt); err != nil {
		return nil, err
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &m.Sources); err != nil {
			return nil, fmt.Errorf("unmarshaling sources: %w", err)
		}
	}
	return &m, nil
}
