package leave

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hrmate/hrmate/internal/hrerr"
	"github.com/hrmate/hrmate/internal/testutil"
)

// fixedNow pins the clock so date validation is deterministic.
var fixedNow = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *MemStore) {
	t.Helper()
	store := NewMemStore()
	svc, err := NewService(store, testutil.QuietLogger(), func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, store
}

// seedBalance gives emp-001 an annual ledger row for the fixed year.
func seedBalance(t *testing.T, svc *Service, total, used float64) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.SetBalance(ctx, "emp-001", TypeAnnual, 2026, total); err != nil {
		t.Fatalf("SetBalance() error = %v", err)
	}
	if used > 0 {
		// Spend the used days through a real approved request so the
		// ledger stays consistent.
		start := date(2026, 9, 1)
		end := start.AddDate(0, 0, int(used)-1)
		req, err := svc.Apply(ctx, "emp-001", TypeAnnual, start, end, "seed")
		if err != nil {
			t.Fatalf("Apply() for seed error = %v", err)
		}
		if _, err := svc.Approve(ctx, req.ID, "mgr-001", ""); err != nil {
			t.Fatalf("Approve() for seed error = %v", err)
		}
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertBalance(t *testing.T, svc *Service, wantTotal, wantUsed float64) {
	t.Helper()
	balances, err := svc.Balances(context.Background(), "emp-001", 2026)
	if err != nil {
		t.Fatalf("Balances() error = %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("got %d balance rows, want 1", len(balances))
	}
	b := balances[0]
	if b.TotalDays != wantTotal || b.UsedDays != wantUsed {
		t.Errorf("balance = {total: %.1f, used: %.1f}, want {total: %.1f, used: %.1f}",
			b.TotalDays, b.UsedDays, wantTotal, wantUsed)
	}
	// Ledger invariants hold after every transition.
	if b.Available() != b.TotalDays-b.UsedDays {
		t.Errorf("available %.1f != total %.1f - used %.1f", b.Available(), b.TotalDays, b.UsedDays)
	}
	if b.Available() < 0 {
		t.Errorf("available is negative: %.1f", b.Available())
	}
}

func TestApplyThenApprove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedBalance(t, svc, 20, 5)

	req, err := svc.Apply(ctx, "emp-001", TypeAnnual, date(2026, 10, 5), date(2026, 10, 7), "trip")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("status after apply = %q, want pending", req.Status)
	}
	if req.Days != 3 {
		t.Errorf("days = %.1f, want 3", req.Days)
	}
	// Apply never touches the balance.
	assertBalance(t, svc, 20, 5)

	approved, err := svc.Approve(ctx, req.ID, "mgr-001", "enjoy")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if approved.Status != StatusApproved || approved.DecidedBy != "mgr-001" {
		t.Errorf("approved = %+v", approved)
	}
	assertBalance(t, svc, 20, 8)
}

func TestApply_InsufficientBalance(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedBalance(t, svc, 20, 5) // 15 available

	_, err := svc.Apply(ctx, "emp-001", TypeAnnual, date(2026, 10, 1), date(2026, 10, 20), "too long")
	if !hrerr.IsValidation(err) {
		t.Fatalf("Apply() error = %v, want validation error", err)
	}

	// No request row may exist for the failed apply.
	reqs, err := store.Requests(ctx, "emp-001", StatusPending)
	if err != nil {
		t.Fatalf("Requests() error = %v", err)
	}
	if len(reqs) != 0 {
		t.Errorf("failed apply left %d pending requests", len(reqs))
	}
}

func TestApply_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedBalance(t, svc, 20, 0)

	tests := []struct {
		name       string
		employeeID string
		typ        Type
		start, end time.Time
	}{
		{"end before start", "emp-001", TypeAnnual, date(2026, 10, 7), date(2026, 10, 5)},
		{"start in the past", "emp-001", TypeAnnual, date(2026, 8, 30), date(2026, 9, 2)},
		{"unknown type", "emp-001", Type("sabbatical"), date(2026, 10, 5), date(2026, 10, 7)},
		{"missing employee", "", TypeAnnual, date(2026, 10, 5), date(2026, 10, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Apply(ctx, tt.employeeID, tt.typ, tt.start, tt.end, "")
			if !hrerr.IsValidation(err) {
				t.Errorf("Apply() error = %v, want validation error", err)
			}
		})
	}
}

func TestApply_StartTodayIsAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	seedBalance(t, svc, 20, 0)

	req, err := svc.Apply(context.Background(), "emp-001", TypeAnnual,
		date(2026, 8, 31), date(2026, 8, 31), "today")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if req.Days != 1 {
		t.Errorf("days = %.1f, want 1", req.Days)
	}
}

func TestApply_NoBalanceRow(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Apply(context.Background(), "emp-002", TypeAnnual,
		date(2026, 10, 5), date(2026, 10, 7), "")
	if !hrerr.IsNotFound(err) {
		t.Errorf("Apply() error = %v, want not-found error", err)
	}
}

func TestTransitions_FromNonPending(t *testing.T) {
	// Approve and Reject must fail from every terminal or already
	// decided state, naming that state.
	states := []struct {
		name    string
		prepare func(t *testing.T, svc *Service) uuid.UUID
	}{
		{"approved", func(t *testing.T, svc *Service) uuid.UUID {
			req := applyDays(t, svc, date(2026, 10, 5), 2)
			mustApprove(t, svc, req)
			return req
		}},
		{"rejected", func(t *testing.T, svc *Service) uuid.UUID {
			req := applyDays(t, svc, date(2026, 10, 5), 2)
			if _, err := svc.Reject(context.Background(), req, "mgr-001", "no"); err != nil {
				t.Fatalf("Reject() error = %v", err)
			}
			return req
		}},
		{"cancelled", func(t *testing.T, svc *Service) uuid.UUID {
			req := applyDays(t, svc, date(2026, 10, 5), 2)
			if _, err := svc.Cancel(context.Background(), req); err != nil {
				t.Fatalf("Cancel() error = %v", err)
			}
			return req
		}},
	}

	for _, st := range states {
		t.Run(st.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			seedBalance(t, svc, 20, 0)
			id := st.prepare(t, svc)

			if _, err := svc.Approve(context.Background(), id, "mgr-001", ""); !hrerr.IsValidation(err) {
				t.Errorf("Approve() from %s error = %v, want validation error", st.name, err)
			}
			if _, err := svc.Reject(context.Background(), id, "mgr-001", ""); !hrerr.IsValidation(err) {
				t.Errorf("Reject() from %s error = %v, want validation error", st.name, err)
			}
		})
	}
}

func TestTransitionError_NamesStatus(t *testing.T) {
	svc, _ := newTestService(t)
	seedBalance(t, svc, 20, 0)
	req := applyDays(t, svc, date(2026, 10, 5), 2)
	mustApprove(t, svc, req)

	_, err := svc.Approve(context.Background(), req, "mgr-001", "")
	if err == nil || !strings.Contains(err.Error(), "approved") {
		t.Errorf("error %q does not name the offending status", err)
	}
}

func TestCancel_PendingHasNoBalanceEffect(t *testing.T) {
	svc, _ := newTestService(t)
	seedBalance(t, svc, 20, 0)
	req := applyDays(t, svc, date(2026, 10, 5), 3)

	cancelled, err := svc.Cancel(context.Background(), req)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %q", cancelled.Status)
	}
	assertBalance(t, svc, 20, 0)
}

func TestCancel_ApprovedFutureReversesBalance(t *testing.T) {
	svc, _ := newTestService(t)
	seedBalance(t, svc, 20, 0)
	req := applyDays(t, svc, date(2026, 10, 5), 3)
	mustApprove(t, svc, req)
	assertBalance(t, svc, 20, 3)

	if _, err := svc.Cancel(context.Background(), req); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	assertBalance(t, svc, 20, 0)
}

func TestCancel_ApprovedPastStartFails(t *testing.T) {
	// Approve leave starting tomorrow, then move the clock past it.
	store := NewMemStore()
	now := fixedNow
	svc, err := NewService(store, testutil.QuietLogger(), func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	ctx := context.Background()
	if _, err := svc.SetBalance(ctx, "emp-001", TypeAnnual, 2026, 20); err != nil {
		t.Fatalf("SetBalance() error = %v", err)
	}
	req, err := svc.Apply(ctx, "emp-001", TypeAnnual, date(2026, 9, 1), date(2026, 9, 2), "")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, err := svc.Approve(ctx, req.ID, "mgr-001", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	now = date(2026, 9, 2) // start date was yesterday

	_, err = svc.Cancel(ctx, req.ID)
	if !hrerr.IsValidation(err) {
		t.Fatalf("Cancel() error = %v, want validation error", err)
	}
	assertBalance(t, svc, 20, 2) // unchanged
}

func TestApprove_RevalidatesBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedBalance(t, svc, 20, 0)

	// Two pending requests both fit at apply time, but only one fits
	// the remaining balance once the first is approved.
	first := applyDays(t, svc, date(2026, 10, 5), 15)
	second := applyDays(t, svc, date(2026, 11, 2), 10)

	mustApprove(t, svc, first)

	_, err := svc.Approve(ctx, second, "mgr-001", "")
	if !hrerr.IsConflict(err) {
		t.Fatalf("Approve() error = %v, want conflict error", err)
	}
	assertBalance(t, svc, 20, 15)
}

func TestApprove_ConcurrentRace(t *testing.T) {
	// Two approvals race for a balance that can satisfy only one.
	// Exactly one must succeed.
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedBalance(t, svc, 10, 0)

	first := applyDays(t, svc, date(2026, 10, 5), 8)
	second := applyDays(t, svc, date(2026, 11, 2), 8)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Approve(ctx, id, "mgr-001", "")
		}()
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case hrerr.IsConflict(err) || hrerr.IsValidation(err):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Errorf("succeeded=%d conflicted=%d, want exactly one of each", succeeded, conflicted)
	}
	assertBalance(t, svc, 10, 8)
}

func TestSetBalance_BelowUsedFails(t *testing.T) {
	svc, _ := newTestService(t)
	seedBalance(t, svc, 20, 5)

	_, err := svc.SetBalance(context.Background(), "emp-001", TypeAnnual, 2026, 3)
	if !hrerr.IsValidation(err) {
		t.Errorf("SetBalance() error = %v, want validation error", err)
	}
}

func TestRequests_StatusFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedBalance(t, svc, 20, 0)

	a := applyDays(t, svc, date(2026, 10, 5), 2)
	applyDays(t, svc, date(2026, 11, 2), 2)
	mustApprove(t, svc, a)

	pending, err := svc.Requests(ctx, "emp-001", StatusPending)
	if err != nil {
		t.Fatalf("Requests() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}

	all, err := svc.Requests(ctx, "emp-001", "")
	if err != nil {
		t.Fatalf("Requests() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}

	if _, err := svc.Requests(ctx, "emp-001", Status("limbo")); !hrerr.IsValidation(err) {
		t.Errorf("Requests() with bad status error = %v, want validation error", err)
	}
}

func TestUnknownRequestID(t *testing.T) {
	svc, _ := newTestService(t)
	id := uuid.New()

	if _, err := svc.Approve(context.Background(), id, "mgr-001", ""); !hrerr.IsNotFound(err) {
		t.Errorf("Approve() error = %v, want not-found error", err)
	}
	if _, err := svc.Cancel(context.Background(), id); !hrerr.IsNotFound(err) {
		t.Errorf("Cancel() error = %v, want not-found error", err)
	}
}

// applyDays applies for n consecutive annual days starting at start.
func applyDays(t *testing.T, svc *Service, start time.Time, n int) uuid.UUID {
	t.Helper()
	req, err := svc.Apply(context.Background(), "emp-001", TypeAnnual,
		start, start.AddDate(0, 0, n-1), "")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return req.ID
}

func mustApprove(t *testing.T, svc *Service, id uuid.UUID) {
	t.Helper()
	if _, err := svc.Approve(context.Background(), id, "mgr-001", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
}

