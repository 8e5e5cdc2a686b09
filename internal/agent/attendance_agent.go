package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrmate/hrmate/internal/hrms"
)

const attendanceSystem = `You are the attendance assistant of an HR chatbot. You answer
questions about clock-in/clock-out records, monthly attendance summaries, and
company holidays. Use the tools for all facts; never invent attendance data.
Dates in tool arguments use the YYYY-MM-DD format. Resolve relative dates
against today's date before calling a tool.`

// AttendanceRangeInput are the arguments for check_attendance.
type AttendanceRangeInput struct {
	FromDate string `json:"from_date" jsonschema:"first day of the range, YYYY-MM-DD"`
	ToDate   string `json:"to_date" jsonschema:"last day of the range, YYYY-MM-DD"`
}

// AttendanceSummaryInput are the arguments for view_attendance_summary.
type AttendanceSummaryInput struct {
	Month int `json:"month" jsonschema:"month number, 1-12"`
	Year  int `json:"year" jsonschema:"calendar year"`
}

// HolidaysInput are the arguments for check_holidays.
type HolidaysInput struct {
	Year int `json:"year,omitempty" jsonschema:"calendar year; 0 or omitted means the current year"`
}

// NewAttendanceAgent builds the attendance domain agent over the HRMS client.
func NewAttendanceAgent(client hrms.Client, gen Generator, cfg Config) (*Agent, error) {
	registry, err := AttendanceRegistry(client, cfg.Now)
	if err != nil {
		return nil, err
	}

	cfg.Name = "attendance"
	cfg.Description = "Handles attendance records, monthly attendance summaries and company holidays."
	cfg.System = attendanceSystem
	cfg.Registry = registry
	cfg.Generator = gen
	return New(cfg)
}

// AttendanceRegistry builds the attendance tool set. Shared between the
// chat agent and the MCP surface. A nil now means time.Now.
func AttendanceRegistry(client hrms.Client, now func() time.Time) (*Registry, error) {
	if now == nil {
		now = time.Now
	}

	return NewRegistry(
		&Tool{
			Name:        "check_attendance",
			Description: "Get the employee's per-day attendance records for a date range (weekends excluded).",
			InputSchema: SchemaFor[AttendanceRangeInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				in, err := DecodeArgs[AttendanceRangeInput](args)
				if err != nil {
					return "", err
				}
				employeeID, err := UserFromContext(ctx)
				if err != nil {
					return "", err
				}
				from, err := parseDate(in.FromDate)
				if err != nil {
					return "", fmt.Errorf("from_date: %w", err)
				}
				to, err := parseDate(in.ToDate)
				if err != nil {
					return "", fmt.Errorf("to_date: %w", err)
				}
				records, err := client.AttendanceRecords(ctx, employeeID, from, to)
				if err != nil {
					return "", err
				}
				if len(records) == 0 {
					return "No working days in that range.", nil
				}
				var b strings.Builder
				b.WriteString("Attendance records:\n")
				for _, r := range records {
					if r.Status == "present" {
						fmt.Fprintf(&b, "- %s: present, %s to %s\n",
							r.Date.Format(time.DateOnly), r.ClockIn, r.ClockOut)
						continue
					}
					fmt.Fprintf(&b, "- %s: %s\n", r.Date.Format(time.DateOnly), r.Status)
				}
				return b.String(), nil
			},
		},
		&Tool{
			Name:        "view_attendance_summary",
			Description: "Get the employee's aggregated attendance for one month: days present, absent, on leave, late arrivals.",
			InputSchema: SchemaFor[AttendanceSummaryInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				in, err := DecodeArgs[AttendanceSummaryInput](args)
				if err != nil {
					return "", err
				}
				if in.Month < 1 || in.Month > 12 {
					return "", fmt.Errorf("month must be 1-12, got %d", in.Month)
				}
				employeeID, err := UserFromContext(ctx)
				if err != nil {
					return "", err
				}
				s, err := client.AttendanceSummary(ctx, employeeID, time.Month(in.Month), in.Year)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Attendance for %s %d: %d working days, %d present, %d absent, %d on leave, %d late arrivals.",
					time.Month(s.Month), s.Year, s.WorkingDays, s.DaysPresent,
					s.DaysAbsent, s.DaysOnLeave, s.LateArrivals), nil
			},
		},
		&Tool{
			Name:        "check_holidays",
			Description: "List the company holiday calendar for a year.",
			InputSchema: SchemaFor[HolidaysInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				in, err := DecodeArgs[HolidaysInput](args)
				if err != nil {
					return "", err
				}
				year := in.Year
				if year <= 0 {
					year = now().UTC().Year()
				}
				holidays, err := client.Holidays(ctx, year)
				if err != nil {
					return "", err
				}
				if len(holidays) == 0 {
					return fmt.Sprintf("No company holidays are published for %d.", year), nil
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Company holidays in %d:\n", year)
				for _, h := range holidays {
					fmt.Fprintf(&b, "- %s: %s\n", h.Date.Format(time.DateOnly), h.Name)
				}
				return b.String(), nil
			},
		},
	)
}
