package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hrmate/hrmate/internal/hrms"
)

const payrollSystem = `You are the payroll assistant of an HR chatbot. You answer
questions about payslips, salary components, deductions and tax. Use the tools
for every figure; never estimate or invent amounts. Amounts are monthly unless
a tool says otherwise.`

// PayslipInput are the arguments for view_payslip and payslip_breakdown.
type PayslipInput struct {
	Month int `json:"month" jsonschema:"month number, 1-12"`
	Year  int `json:"year" jsonschema:"calendar year"`
}

// TaxSummaryInput are the arguments for view_tax_summary.
type TaxSummaryInput struct {
	Year int `json:"year" jsonschema:"calendar year"`
}

// NewPayrollAgent builds the payroll domain agent over the HRMS client.
func NewPayrollAgent(client hrms.Client, gen Generator, cfg Config) (*Agent, error) {
	registry, err := PayrollRegistry(client)
	if err != nil {
		return nil, err
	}

	cfg.Name = "payroll"
	cfg.Description = "Handles payslips, salary breakdowns, deductions and tax summaries."
	cfg.System = payrollSystem
	cfg.Registry = registry
	cfg.Generator = gen
	return New(cfg)
}

// PayrollRegistry builds the payroll tool set. Shared between the chat
// agent and the MCP surface.
func PayrollRegistry(client hrms.Client) (*Registry, error) {
	fetchSlip := func(ctx context.Context, args map[string]any) (*hrms.Payslip, error) {
		in, err := DecodeArgs[PayslipInput](args)
		if err != nil {
			return nil, err
		}
		if in.Month < 1 || in.Month > 12 {
			return nil, fmt.Errorf("month must be 1-12, got %d", in.Month)
		}
		employeeID, err := UserFromContext(ctx)
		if err != nil {
			return nil, err
		}
		return client.Payslip(ctx, employeeID, time.Month(in.Month), in.Year)
	}

	return NewRegistry(
		&Tool{
			Name:        "view_payslip",
			Description: "Get the headline figures of one month's payslip: gross pay, total deductions, net pay.",
			InputSchema: SchemaFor[PayslipInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				slip, err := fetchSlip(ctx, args)
				if err != nil {
					return "", err
				}
				var deductions float64
				for _, v := range slip.Deductions {
					deductions += v
				}
				return fmt.Sprintf("Payslip for %s %d: gross %.2f, deductions %.2f, net %.2f. Paid on %s.",
					time.Month(slip.Month), slip.Year, slip.GrossPay, deductions, slip.NetPay,
					slip.PaidOn.Format(time.DateOnly)), nil
			},
		},
		&Tool{
			Name:        "payslip_breakdown",
			Description: "Get the full component breakdown of one month's payslip: basic pay, each allowance, each deduction.",
			InputSchema: SchemaFor[PayslipInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				slip, err := fetchSlip(ctx, args)
				if err != nil {
					return "", err
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Payslip breakdown for %s %d:\n", time.Month(slip.Month), slip.Year)
				fmt.Fprintf(&b, "- basic pay: %.2f\n", slip.BasicPay)
				for _, k := range sortedKeys(slip.Allowances) {
					fmt.Fprintf(&b, "- allowance %s: %.2f\n", k, slip.Allowances[k])
				}
				for _, k := range sortedKeys(slip.Deductions) {
					fmt.Fprintf(&b, "- deduction %s: %.2f\n", k, slip.Deductions[k])
				}
				fmt.Fprintf(&b, "- gross: %.2f, net: %.2f\n", slip.GrossPay, slip.NetPay)
				return b.String(), nil
			},
		},
		&Tool{
			Name:        "view_tax_summary",
			Description: "Get the employee's year-to-date tax summary: gross income, tax withheld, effective rate.",
			InputSchema: SchemaFor[TaxSummaryInput](),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				in, err := DecodeArgs[TaxSummaryInput](args)
				if err != nil {
					return "", err
				}
				employeeID, err := UserFromContext(ctx)
				if err != nil {
					return "", err
				}
				ts, err := client.TaxSummary(ctx, employeeID, in.Year)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Tax summary for %d: gross income %.2f, tax withheld %.2f, effective rate %.2f%%.",
					ts.Year, ts.GrossIncome, ts.TaxWithheld, ts.EffectivePct), nil
			},
		},
	)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
