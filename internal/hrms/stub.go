package hrms

import (
	"context"
	"math"
	"time"

	"github.com/hrmate/hrmate/internal/hrerr"
)

// Stub is a deterministic in-memory Client. The same employee ID always
// yields the same records, so demos and tests are reproducible. Data is
// derived from a hash of the employee ID rather than stored, which keeps
// the stub stateless and safe for concurrent use.
type Stub struct {
	employees map[string]StubEmployee
}

// StubEmployee seeds the generated data for one employee.
type StubEmployee struct {
	Name       string
	MonthlyPay float64
}

// NewStub creates a stub with the given employee roster. A nil roster
// gets a small default one.
func NewStub(employees map[string]StubEmployee) *Stub {
	if employees == nil {
		employees = map[string]StubEmployee{
			"emp-001": {Name: "Asha Rao", MonthlyPay: 5200},
			"emp-002": {Name: "Daniel Okafor", MonthlyPay: 4300},
			"emp-003": {Name: "Mei Lin", MonthlyPay: 6100},
		}
	}
	return &Stub{employees: employees}
}

func (s *Stub) employee(id string) (StubEmployee, error) {
	emp, ok := s.employees[id]
	if !ok {
		return StubEmployee{}, hrerr.NotFoundf("employee %s not found in HRMS", id)
	}
	return emp, nil
}

// AttendanceSummary returns a deterministic monthly aggregate.
func (s *Stub) AttendanceSummary(_ context.Context, employeeID string, month time.Month, year int) (*AttendanceSummary, error) {
	if _, err := s.employee(employeeID); err != nil {
		return nil, err
	}

	working := workingDays(month, year)
	seed := hash(employeeID, int(month), year)
	absent := seed % 2
	onLeave := (seed / 2) % 3
	return &AttendanceSummary{
		EmployeeID:   employeeID,
		Month:        int(month),
		Year:         year,
		WorkingDays:  working,
		DaysPresent:  working - absent - onLeave,
		DaysAbsent:   absent,
		DaysOnLeave:  onLeave,
		LateArrivals: (seed / 6) % 4,
	}, nil
}

// AttendanceRecords returns per-day records for the range, weekends
// excluded. The range is capped at 62 days to bound the response.
func (s *Stub) AttendanceRecords(_ context.Context, employeeID string, from, to time.Time) ([]AttendanceRecord, error) {
	if _, err := s.employee(employeeID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, hrerr.Validationf("range end %s is before start %s",
			to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	if to.Sub(from) > 62*24*time.Hour {
		return nil, hrerr.Validationf("attendance range is limited to 62 days")
	}

	var records []AttendanceRecord
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		seed := hash(employeeID, d.Day(), d.Year()*100+int(d.Month()))
		rec := AttendanceRecord{Date: d, Status: "present", ClockIn: "09:00", ClockOut: "17:30"}
		switch seed % 12 {
		case 0:
			rec = AttendanceRecord{Date: d, Status: "leave"}
		case 1:
			rec.ClockIn = "09:45" // late arrival
		}
		records = append(records, rec)
	}
	return records, nil
}

// Holidays returns the fixed company holiday calendar for a year.
func (s *Stub) Holidays(_ context.Context, year int) ([]Holiday, error) {
	return []Holiday{
		{Date: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), Name: "New Year's Day"},
		{Date: time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC), Name: "Labour Day"},
		{Date: time.Date(year, time.August, 15, 0, 0, 0, 0, time.UTC), Name: "Independence Day"},
		{Date: time.Date(year, time.October, 2, 0, 0, 0, 0, time.UTC), Name: "Founders' Day"},
		{Date: time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC), Name: "Christmas Day"},
	}, nil
}

// Payslip returns a deterministic salary statement.
func (s *Stub) Payslip(_ context.Context, employeeID string, month time.Month, year int) (*Payslip, error) {
	emp, err := s.employee(employeeID)
	if err != nil {
		return nil, err
	}

	basic := emp.MonthlyPay * 0.6
	hra := emp.MonthlyPay * 0.25
	special := emp.MonthlyPay * 0.15
	gross := basic + hra + special
	tax := round2(gross * 0.18)
	pension := round2(basic * 0.05)
	return &Payslip{
		EmployeeID: employeeID,
		Month:      int(month),
		Year:       year,
		BasicPay:   round2(basic),
		Allowances: map[string]float64{"hra": round2(hra), "special": round2(special)},
		Deductions: map[string]float64{"income_tax": tax, "pension": pension},
		GrossPay:   round2(gross),
		NetPay:     round2(gross - tax - pension),
		PaidOn:     time.Date(year, month, 28, 0, 0, 0, 0, time.UTC),
	}, nil
}

// TaxSummary aggregates twelve stub payslips.
func (s *Stub) TaxSummary(ctx context.Context, employeeID string, year int) (*TaxSummary, error) {
	var gross, tax float64
	for m := time.January; m <= time.December; m++ {
		slip, err := s.Payslip(ctx, employeeID, m, year)
		if err != nil {
			return nil, err
		}
		gross += slip.GrossPay
		tax += slip.Deductions["income_tax"]
	}
	return &TaxSummary{
		EmployeeID:   employeeID,
		Year:         year,
		GrossIncome:  round2(gross),
		TaxWithheld:  round2(tax),
		TaxableBase:  round2(gross * 0.9),
		EffectivePct: round2(tax / gross * 100),
	}, nil
}

func workingDays(month time.Month, year int) int {
	days := 0
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			days++
		}
	}
	return days
}

// hash is a small FNV-style mix for deterministic pseudo-data.
func hash(s string, a, b int) int {
	h := uint32(2166136261)
	for _, c := range s {
		h = (h ^ uint32(c)) * 16777619
	}
	h = (h ^ uint32(a)) * 16777619
	h = (h ^ uint32(b)) * 16777619
	return int(h % math.MaxInt16)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
