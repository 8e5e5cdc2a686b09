package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hrmate/hrmate/internal/leave"
)

const leaveSystem = `You are the leave assistant of an HR chatbot. You help employees
check leave balances, apply for leave, review their leave history, and cancel
requests. Use the tools for every factual claim about balances or requests;
never invent numbers. Dates in tool arguments use the YYYY-MM-DD format.
Resolve relative dates ("tomorrow", "next Monday") against today's date
before calling a tool.`

// CheckBalanceInput are the arguments for check_leave_balance.
type CheckBalanceInput struct {
	Year int `json:"year,omitempty" jsonschema:"calendar year; 0 or omitted means the current year"`
}

// ApplyLeaveInput are the arguments for apply_for_leave.
type ApplyLeaveInput struct {
	LeaveType string `json:"leave_type" jsonschema:"one of: annual, sick, casual, unpaid"`
	StartDate string `json:"start_date" jsonschema:"first day of leave, YYYY-MM-DD"`
	EndDate   string `json:"end_date" jsonschema:"last day of leave, YYYY-MM-DD"`
	Reason    string `json:"reason,omitempty" jsonschema:"short reason for the leave"`
}

// LeaveHistoryInput are the arguments for view_leave_history.
type LeaveHistoryInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter: pending, approved, rejected or cancelled; empty means all"`
}

// CancelLeaveInput are the arguments for cancel_leave_request.
type CancelLeaveInput struct {
	RequestID string `json:"request_id" jsonschema:"UUID of the leave request to cancel"`
}

// NewLeaveAgent builds the leave domain agent over the lifecycle service.
func NewLeaveAgent(svc *leave.Service, gen Generator, cfg Config) (*Agent, error) {
	registry, err := LeaveRegistry(svc)
	if err != nil {
		return nil, err
	}

	cfg.Name = "leave"
	cfg.Description = "Handles leave balances, leave applications, leave history and cancellations."
	cfg.System = leaveSystem
	cfg.Registry = registry
	cfg.Generator = gen
	return New(cfg)
}

// LeaveRegistry builds the leave tool set. Shared between the chat
// agent and the MCP surface.
func LeaveRegistry(svc *leave.Service) (*Registry, error) {
	return NewRegistry(
		&Tool{
			Name:        "check_leave_balance",
			Description: "Get the employee's leave balances (total, used, available) per leave type for a year.",
			InputSchema: SchemaFor[CheckBalanceInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				in, err := DecodeArgs[CheckBalanceInput](args)
				if err != nil {
					return "", err
				}
				employeeID, err := UserFromContext(ctx)
				if err != nil {
					return "", err
				}
				balances, err := svc.Balances(ctx, employeeID, in.Year)
				if err != nil {
					return "", err
				}
				if len(balances) == 0 {
					return "No leave balances are set up for this year.", nil
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Leave balances for %d:\n", balances[0].Year)
				for _, bal := range balances {
					fmt.Fprintf(&b, "- %s: %.1f available (%.1f used of %.1f total)\n",
						bal.Type, bal.Available(), bal.UsedDays, bal.TotalDays)
				}
				return b.String(), nil
			},
		},
		&Tool{
			Name:        "apply_for_leave",
			Description: "Submit a new leave request. Validates dates and balance; the request starts as pending.",
			InputSchema: SchemaFor[ApplyLeaveInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				in, err := DecodeArgs[ApplyLeaveInput](args)
				if err != nil {
					return "", err
				}
				employeeID, err := UserFromContext(ctx)
				if err != nil {
					return "", err
				}
				start, err := parseDate(in.StartDate)
				if err != nil {
					return "", fmt.Errorf("start_date: %w", err)
				}
				end, err := parseDate(in.EndDate)
				if err != nil {
					return "", fmt.Errorf("end_date: %w", err)
				}
				req, err := svc.Apply(ctx, employeeID, leave.Type(in.LeaveType), start, end, in.Reason)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Leave request %s created: %.1f %s day(s) from %s to %s, status %s. It now awaits manager approval.",
					req.ID, req.Days, req.Type,
					req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly),
					req.Status), nil
			},
		},
		&Tool{
			Name:        "view_leave_history",
			Description: "List the employee's leave requests, optionally filtered by status, newest first.",
			InputSchema: SchemaFor[LeaveHistoryInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				in, err := DecodeArgs[LeaveHistoryInput](args)
				if err != nil {
					return "", err
				}
				employeeID, err := UserFromContext(ctx)
				if err != nil {
					return "", err
				}
				requests, err := svc.Requests(ctx, employeeID, leave.Status(in.Status))
				if err != nil {
					return "", err
				}
				if len(requests) == 0 {
					return "No leave requests found.", nil
				}
				var b strings.Builder
				b.WriteString("Leave requests:\n")
				for _, r := range requests {
					fmt.Fprintf(&b, "- %s: %.1f %s day(s), %s to %s, status %s (id %s)\n",
						r.CreatedAt.Format(time.DateOnly), r.Days, r.Type,
						r.StartDate.Format(time.DateOnly), r.EndDate.Format(time.DateOnly),
						r.Status, r.ID)
				}
				return b.String(), nil
			},
		},
		&Tool{
			Name:        "cancel_leave_request",
			Description: "Cancel a pending request, or an approved one that has not started yet.",
			InputSchema: SchemaFor[CancelLeaveInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				in, err := DecodeArgs[CancelLeaveInput](args)
				if err != nil {
					return "", err
				}
				employeeID, err := UserFromContext(ctx)
				if err != nil {
					return "", err
				}
				id, err := uuid.Parse(in.RequestID)
				if err != nil {
					return "", fmt.Errorf("request_id is not a valid UUID: %w", err)
				}
				// Only the owner may cancel through the chat surface.
				req, err := svc.Request(ctx, id)
				if err != nil {
					return "", err
				}
				if req.EmployeeID != employeeID {
					return "", fmt.Errorf("leave request %s does not belong to you", id)
				}
				cancelled, err := svc.Cancel(ctx, id)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Leave request %s is now %s. Any reserved days have been returned to your balance.",
					cancelled.ID, cancelled.Status), nil
			},
		},
	)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a YYYY-MM-DD date", s)
	}
	return t, nil
}
