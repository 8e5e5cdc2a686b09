// Package leave implements the leave request lifecycle and balance ledger.
//
// A request moves Pending -> Approved | Rejected, and may be Cancelled
// from Pending at any time or from Approved while its start date is still
// in the future. Rejected and Cancelled are terminal.
//
// The balance ledger upholds two invariants across every transition:
// available_days + used_days == total_days, and available_days >= 0.
// Approve and Cancel mutate the balance and flip the status as one
// atomic unit; implementations serialize concurrent mutations of the
// same (employee, type, year) row.
package leave

import (
	"time"

	"github.com/google/uuid"
)

// Type is a leave category.
type Type string

const (
	TypeAnnual Type = "annual"
	TypeSick   Type = "sick"
	TypeCasual Type = "casual"
	TypeUnpaid Type = "unpaid"
)

// ValidType reports whether t is a known leave type.
func ValidType(t Type) bool {
	switch t {
	case TypeAnnual, TypeSick, TypeCasual, TypeUnpaid:
		return true
	}
	return false
}

// Status is a leave request's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Request is a leave request. Days is computed at apply time and never
// recomputed afterwards.
type Request struct {
	ID           uuid.UUID
	EmployeeID   string
	Type         Type
	StartDate    time.Time // date-only, UTC midnight
	EndDate      time.Time // date-only, UTC midnight
	Days         float64
	Reason       string
	Status       Status
	DecidedBy    string
	DecisionNote string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Balance is one employee's ledger row for a leave type and year.
type Balance struct {
	EmployeeID string
	Type       Type
	Year       int
	TotalDays  float64
	UsedDays   float64
	UpdatedAt  time.Time
}

// Available returns the days still available to spend.
func (b *Balance) Available() float64 {
	return b.TotalDays - b.UsedDays
}

// Date truncates t to a UTC date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from start to end, inclusive.
func DaysBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours()/24 + 1
}
