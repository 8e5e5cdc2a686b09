// Package hrms defines the external HRMS collaborator consumed by the
// attendance and payroll agents, plus a deterministic seeded stub used
// in demo mode and tests.
package hrms

import (
	"context"
	"time"
)

// Client is the read-only HRMS surface the agents need. Production
// deployments implement it against the company's HRMS API; the stub
// serves seeded data.
type Client interface {
	AttendanceSummary(ctx context.Context, employeeID string, month time.Month, year int) (*AttendanceSummary, error)
	AttendanceRecords(ctx context.Context, employeeID string, from, to time.Time) ([]AttendanceRecord, error)
	Holidays(ctx context.Context, year int) ([]Holiday, error)
	Payslip(ctx context.Context, employeeID string, month time.Month, year int) (*Payslip, error)
	TaxSummary(ctx context.Context, employeeID string, year int) (*TaxSummary, error)
}

// AttendanceRecord is one working day's clock data.
type AttendanceRecord struct {
	Date     time.Time `json:"date"`
	ClockIn  string    `json:"clock_in"`
	ClockOut string    `json:"clock_out"`
	Status   string    `json:"status"` // present | absent | leave | holiday
}

// AttendanceSummary aggregates one month.
type AttendanceSummary struct {
	EmployeeID   string `json:"employee_id"`
	Month        int    `json:"month"`
	Year         int    `json:"year"`
	WorkingDays  int    `json:"working_days"`
	DaysPresent  int    `json:"days_present"`
	DaysAbsent   int    `json:"days_absent"`
	DaysOnLeave  int    `json:"days_on_leave"`
	LateArrivals int    `json:"late_arrivals"`
}

// Holiday is a company holiday.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Payslip is one month's salary statement.
type Payslip struct {
	EmployeeID string             `json:"employee_id"`
	Month      int                `json:"month"`
	Year       int                `json:"year"`
	BasicPay   float64            `json:"basic_pay"`
	Allowances map[string]float64 `json:"allowances"`
	Deductions map[string]float64 `json:"deductions"`
	GrossPay   float64            `json:"gross_pay"`
	NetPay     float64            `json:"net_pay"`
	PaidOn     time.Time          `json:"paid_on"`
}

// TaxSummary aggregates a calendar year.
type TaxSummary struct {
	EmployeeID   string  `json:"employee_id"`
	Year         int     `json:"year"`
	GrossIncome  float64 `json:"gross_income"`
	TaxWithheld  float64 `json:"tax_withheld"`
	TaxableBase  float64 `json:"taxable_base"`
	EffectivePct float64 `json:"effective_pct"`
}
