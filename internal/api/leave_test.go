package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/hrmate/hrmate/internal/leave"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

func setBalance(t *testing.T, ts *testServer, employeeID string, total float64) {
	t.Helper()
	rec := ts.do(t, http.MethodPut, "/api/v1/leave/balances", "mgr-001", setBalanceRequest{
		EmployeeID: employeeID,
		Type:       string(leave.TypeAnnual),
		Year:       2026,
		TotalDays:  total,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("setting balance: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func applyLeave(t *testing.T, ts *testServer, employeeID, start, end string) string {
	t.Helper()
	req, err := ts.leave.Apply(t.Context(), employeeID, leave.TypeAnnual,
		mustDate(t, start), mustDate(t, end), "trip")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return req.ID.String()
}

func TestLeave_ManagerApprovalFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	setBalance(t, ts, "emp-001", 20)
	id := applyLeave(t, ts, "emp-001", "2026-10-05", "2026-10-07")

	// The pending request shows up in the manager's filtered list.
	rec := ts.do(t, http.MethodGet, "/api/v1/leave/requests?employee_id=emp-001&status=pending", "mgr-001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	list := decodeBody[struct {
		Requests []leaveRequestView `json:"requests"`
	}](t, rec)
	if len(list.Requests) != 1 || list.Requests[0].ID != id {
		t.Fatalf("requests = %+v", list.Requests)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/leave/requests/"+id+"/approve", "mgr-001",
		decisionRequest{Note: "enjoy"})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body = %s", rec.Code, rec.Body.String())
	}
	view := decodeBody[leaveRequestView](t, rec)
	if view.Status != "approved" || view.DecidedBy != "mgr-001" || view.DecisionNote != "enjoy" {
		t.Errorf("view = %+v", view)
	}

	// The ledger reflects the deduction.
	rec = ts.do(t, http.MethodGet, "/api/v1/leave/balances?employee_id=emp-001&year=2026", "mgr-001", nil)
	balances := decodeBody[struct {
		Balances []balanceView `json:"balances"`
	}](t, rec)
	if len(balances.Balances) != 1 {
		t.Fatalf("balances = %+v", balances.Balances)
	}
	b := balances.Balances[0]
	if b.UsedDays != 3 || b.Available != 17 {
		t.Errorf("balance = %+v", b)
	}
}

func TestLeave_RejectKeepsBalance(t *testing.T) {
	ts := newTestServer(t, nil)
	setBalance(t, ts, "emp-001", 20)
	id := applyLeave(t, ts, "emp-001", "2026-10-05", "2026-10-07")

	rec := ts.do(t, http.MethodPost, "/api/v1/leave/requests/"+id+"/reject", "mgr-001",
		decisionRequest{Note: "blackout period"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	view := decodeBody[leaveRequestView](t, rec)
	if view.Status != "rejected" {
		t.Errorf("status = %q", view.Status)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/leave/balances?employee_id=emp-001", "mgr-001", nil)
	balances := decodeBody[struct {
		Balances []balanceView `json:"balances"`
	}](t, rec)
	if balances.Balances[0].UsedDays != 0 {
		t.Errorf("used days = %v, want 0", balances.Balances[0].UsedDays)
	}
}

func TestLeave_ErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)
	setBalance(t, ts, "emp-001", 20)
	id := applyLeave(t, ts, "emp-001", "2026-10-05", "2026-10-07")

	// Approve once so the second decision hits a non-pending request.
	rec := ts.do(t, http.MethodPost, "/api/v1/leave/requests/"+id+"/approve", "mgr-001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first approve status = %d", rec.Code)
	}

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"approve non-pending", http.MethodPost, "/api/v1/leave/requests/" + id + "/approve", nil, http.StatusBadRequest},
		{"reject non-pending", http.MethodPost, "/api/v1/leave/requests/" + id + "/reject", nil, http.StatusBadRequest},
		{"unknown request", http.MethodPost, "/api/v1/leave/requests/6b7a3a60-0000-4000-8000-000000000000/approve", nil, http.StatusNotFound},
		{"malformed request id", http.MethodPost, "/api/v1/leave/requests/nope/approve", nil, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/v1/leave/requests?status=perhaps", nil, http.StatusBadRequest},
		{"invalid balance type", http.MethodPut, "/api/v1/leave/balances", setBalanceRequest{
			EmployeeID: "emp-001", Type: "sabbatical", Year: 2026, TotalDays: 5,
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.target, "mgr-001", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLeave_BalanceListDefaultsToCaller(t *testing.T) {
	ts := newTestServer(t, nil)
	setBalance(t, ts, "emp-007", 12)

	rec := ts.do(t, http.MethodGet, "/api/v1/leave/balances", "emp-007", nil)
	balances := decodeBody[struct {
		Balances []balanceView `json:"balances"`
	}](t, rec)
	if len(balances.Balances) != 1 || balances.Balances[0].TotalDays != 12 {
		t.Errorf("balances = %+v", balances.Balances)
	}
}
