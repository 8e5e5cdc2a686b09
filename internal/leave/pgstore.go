package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrmate/hrmate/internal/hrerr"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const requestCols = `id, employee_id, leave_type, start_date, end_date, days,
	reason, status, decided_by, decision_note, created_at, updated_at`

const balanceCols = `employee_id, leave_type, year, total_days, used_days, updated_at`

// PGStore is the PostgreSQL-backed leave ledger. Row locking relies on
// SELECT ... FOR UPDATE inside InTx.
//
// PGStore is safe for concurrent use by multiple goroutines.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGStore creates a PostgreSQL leave store.
func NewPGStore(pool *pgxpool.Pool, logger *slog.Logger) (*PGStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PGStore{pool: pool, logger: logger}, nil
}

// InTx runs fn inside a database transaction.
func (s *PGStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Request returns a request by ID.
func (s *PGStore) Request(ctx context.Context, id uuid.UUID) (*Request, error) {
	return queryRequest(ctx, s.pool, `SELECT `+requestCols+` FROM leave_requests WHERE id = $1`, id)
}

// Requests lists an employee's requests, newest first. Empty status
// means all statuses.
func (s *PGStore) Requests(ctx context.Context, employeeID string, status Status) ([]*Request, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		rows, err = s.pool.Query(ctx, `SELECT `+requestCols+` FROM leave_requests
			WHERE employee_id = $1 AND status = $2
			ORDER BY created_at DESC`, employeeID, status)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+requestCols+` FROM leave_requests
			WHERE employee_id = $1
			ORDER BY created_at DESC`, employeeID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing leave requests: %w", err)
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning leave request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// Balances returns an employee's ledger rows for a year.
func (s *PGStore) Balances(ctx context.Context, employeeID string, year int) ([]*Balance, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+balanceCols+` FROM leave_balances
		WHERE employee_id = $1 AND year = $2
		ORDER BY leave_type`, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("listing leave balances: %w", err)
	}
	defer rows.Close()

	var balances []*Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning leave balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// pgTx adapts a pgx transaction to the Tx interface.
type pgTx struct {
	q querier
}

func (t *pgTx) RequestForUpdate(ctx context.Context, id uuid.UUID) (*Request, error) {
	return queryRequest(ctx, t.q, `SELECT `+requestCols+` FROM leave_requests
		WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) BalanceForUpdate(ctx context.Context, employeeID string, typ Type, year int) (*Balance, error) {
	row := t.q.QueryRow(ctx, `SELECT `+balanceCols+` FROM leave_balances
		WHERE employee_id = $1 AND leave_type = $2 AND year = $3
		FOR UPDATE`, employeeID, typ, year)
	b, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hrerr.NotFoundf("no %s leave balance for employee %s in %d", typ, employeeID, year)
		}
		return nil, fmt.Errorf("locking leave balance: %w", err)
	}
	return b, nil
}

func (t *pgTx) InsertRequest(ctx context.Context, r *Request) error {
	_, err := t.q.Exec(ctx, `INSERT INTO leave_requests
		(id, employee_id, leave_type, start_date, end_date, days, reason, status, decided_by, decision_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.EmployeeID, r.Type, r.StartDate, r.EndDate, r.Days,
		r.Reason, r.Status, r.DecidedBy, r.DecisionNote)
	if err != nil {
		return fmt.Errorf("inserting leave request: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateRequest(ctx context.Context, r *Request) error {
	tag, err := t.q.Exec(ctx, `UPDATE leave_requests
		SET status = $2, decided_by = $3, decision_note = $4, updated_at = now()
		WHERE id = $1`,
		r.ID, r.Status, r.DecidedBy, r.DecisionNote)
	if err != nil {
		return fmt.Errorf("updating leave request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return hrerr.NotFoundf("leave request %s", r.ID)
	}
	return nil
}

func (t *pgTx) UpsertBalance(ctx context.Context, b *Balance) error {
	_, err := t.q.Exec(ctx, `INSERT INTO leave_balances
		(employee_id, leave_type, year, total_days, used_days, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (employee_id, leave_type, year)
		DO UPDATE SET total_days = EXCLUDED.total_days,
			used_days = EXCLUDED.used_days,
			updated_at = now()`,
		b.EmployeeID, b.Type, b.Year, b.TotalDays, b.UsedDays)
	if err != nil {
		return fmt.Errorf("upserting leave balance: %w", err)
	}
	return nil
}

func queryRequest(ctx context.Context, q querier, sql string, id uuid.UUID) (*Request, error) {
	r, err := scanRequest(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hrerr.NotFoundf("leave request %s", id)
		}
		return nil, fmt.Errorf("getting leave request: %w", err)
	}
	return r, nil
}

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.EmployeeID, &r.Type, &r.StartDate, &r.EndDate, &r.Days,
		&r.Reason, &r.Status, &r.DecidedBy, &r.DecisionNote, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.StartDate = Date(r.StartDate)
	r.EndDate = Date(r.EndDate)
	return &r, nil
}

func scanBalance(row pgx.Row) (*Balance, error) {
	var b Balance
	err := row.Scan(&b.EmployeeID, &b.Type, &b.Year, &b.TotalDays, &b.UsedDays, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
