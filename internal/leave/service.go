package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hrmate/hrmate/internal/hrerr"
)

// Service implements the leave lifecycle transitions over a Store.
//
// Every mutating transition re-reads current state under a row lock, so
// a transition attempted from a non-permitted state fails with an error
// naming the offending status instead of silently no-opping.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a leave Service. nowFn overrides the clock in
// tests; nil means time.Now.
func NewService(store Store, logger *slog.Logger, nowFn func() time.Time) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{store: store, logger: logger, now: nowFn}, nil
}

// today returns the current UTC date.
func (s *Service) today() time.Time {
	return Date(s.now().UTC())
}

// Apply validates and creates a leave request in Pending. The balance
// is checked but not mutated; days are only spent at approval.
func (s *Service) Apply(ctx context.Context, employeeID string, t Type, start, end time.Time, reason string) (*Request, error) {
	if employeeID == "" {
		return nil, hrerr.Validationf("employee ID is required")
	}
	if !ValidType(t) {
		return nil, hrerr.Validationf("unknown leave type %q", t)
	}

	start, end = Date(start), Date(end)
	if end.Before(start) {
		return nil, hrerr.Validationf("end date %s is before start date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	if start.Before(s.today()) {
		return nil, hrerr.Validationf("start date %s is in the past", start.Format(time.DateOnly))
	}

	days := DaysBetween(start, end)
	req := &Request{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		Type:       t,
		StartDate:  start,
		EndDate:    end,
		Days:       days,
		Reason:     reason,
		Status:     StatusPending,
	}

	err := s.store.InTx(ctx, func(tx Tx) error {
		bal, err := tx.BalanceForUpdate(ctx, employeeID, t, start.Year())
		if err != nil {
			return err
		}
		if bal.Available() < days {
			return hrerr.Validationf("insufficient %s leave balance: need %.1f days, have %.1f",
				t, days, bal.Available())
		}
		return tx.InsertRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave request created",
		"request_id", req.ID, "employee_id", employeeID, "type", t, "days", days)
	return req, nil
}

// Approve flips a Pending request to Approved and spends the days.
// The balance is re-validated at approval time under a row lock; the
// status flip and balance mutation commit as one atomic unit. A request
// that lost a race for the last days fails with a conflict error.
func (s *Service) Approve(ctx context.Context, requestID uuid.UUID, approver, note string) (*Request, error) {
	var req *Request
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.RequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return hrerr.Validationf("cannot approve request in status %q", req.Status)
		}

		bal, err := tx.BalanceForUpdate(ctx, req.EmployeeID, req.Type, req.StartDate.Year())
		if err != nil {
			return err
		}
		if bal.Available() < req.Days {
			return hrerr.Conflictf("balance changed since apply: need %.1f days, have %.1f",
				req.Days, bal.Available())
		}

		bal.UsedDays += req.Days
		if err := tx.UpsertBalance(ctx, bal); err != nil {
			return err
		}

		req.Status = StatusApproved
		req.DecidedBy = approver
		req.DecisionNote = note
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave request approved",
		"request_id", requestID, "approver", approver, "days", req.Days)
	return req, nil
}

// Reject flips a Pending request to Rejected. No balance effect.
func (s *Service) Reject(ctx context.Context, requestID uuid.UUID, approver, reason string) (*Request, error) {
	var req *Request
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.RequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return hrerr.Validationf("cannot reject request in status %q", req.Status)
		}
		req.Status = StatusRejected
		req.DecidedBy = approver
		req.DecisionNote = reason
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave request rejected", "request_id", requestID, "approver", approver)
	return req, nil
}

// Cancel cancels a request. From Pending there is no balance effect;
// from Approved the spent days are returned, allowed only while the
// start date is still in the future.
func (s *Service) Cancel(ctx context.Context, requestID uuid.UUID) (*Request, error) {
	var req *Request
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.RequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		switch req.Status {
		case StatusPending:
			// No days were spent yet.
		case StatusApproved:
			if !req.StartDate.After(s.today()) {
				return hrerr.Validationf("cannot cancel approved leave starting %s: start date has passed",
					req.StartDate.Format(time.DateOnly))
			}
			bal, err := tx.BalanceForUpdate(ctx, req.EmployeeID, req.Type, req.StartDate.Year())
			if err != nil {
				return err
			}
			bal.UsedDays -= req.Days
			if err := tx.UpsertBalance(ctx, bal); err != nil {
				return err
			}
		default:
			return hrerr.Validationf("cannot cancel request in status %q", req.Status)
		}

		req.Status = StatusCancelled
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leave request cancelled", "request_id", requestID)
	return req, nil
}

// Request returns a single request by ID.
func (s *Service) Request(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.store.Request(ctx, id)
}

// Requests lists an employee's requests, optionally filtered by status.
// An empty status means all.
func (s *Service) Requests(ctx context.Context, employeeID string, status Status) ([]*Request, error) {
	if employeeID == "" {
		return nil, hrerr.Validationf("employee ID is required")
	}
	if status != "" && !ValidStatus(status) {
		return nil, hrerr.Validationf("unknown status %q", status)
	}
	return s.store.Requests(ctx, employeeID, status)
}

// Balances returns an employee's ledger rows for a year. year <= 0
// means the current year.
func (s *Service) Balances(ctx context.Context, employeeID string, year int) ([]*Balance, error) {
	if employeeID == "" {
		return nil, hrerr.Validationf("employee ID is required")
	}
	if year <= 0 {
		year = s.today().Year()
	}
	return s.store.Balances(ctx, employeeID, year)
}

// SetBalance creates or replaces a ledger row, keeping used days. Used
// for onboarding and yearly allocation.
func (s *Service) SetBalance(ctx context.Context, employeeID string, t Type, year int, totalDays float64) (*Balance, error) {
	if employeeID == "" {
		return nil, hrerr.Validationf("employee ID is required")
	}
	if !ValidType(t) {
		return nil, hrerr.Validationf("unknown leave type %q", t)
	}
	if totalDays < 0 {
		return nil, hrerr.Validationf("total days must not be negative, got %.1f", totalDays)
	}
	if year <= 0 {
		year = s.today().Year()
	}

	var bal *Balance
	err := s.store.InTx(ctx, func(tx Tx) error {
		existing, err := tx.BalanceForUpdate(ctx, employeeID, t, year)
		if err != nil && !hrerr.IsNotFound(err) {
			return err
		}

		bal = &Balance{EmployeeID: employeeID, Type: t, Year: year, TotalDays: totalDays}
		if existing != nil {
			bal.UsedDays = existing.UsedDays
		}
		if bal.UsedDays > bal.TotalDays {
			return hrerr.Validationf("total days %.1f is below already used %.1f", totalDays, bal.UsedDays)
		}
		return tx.UpsertBalance(ctx, bal)
	})
	if err != nil {
		return nil, err
	}
	return bal, nil
}
