package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hrmate/hrmate/internal/hrerr"
	"github.com/hrmate/hrmate/internal/leave"
)

// LeaveService is the manager-facing slice of the leave ledger.
type LeaveService interface {
	Requests(ctx context.Context, employeeID string, status leave.Status) ([]*leave.Request, error)
	Approve(ctx context.Context, requestID uuid.UUID, approver, note string) (*leave.Request, error)
	Reject(ctx context.Context, requestID uuid.UUID, approver, reason string) (*leave.Request, error)
	Balances(ctx context.Context, employeeID string, year int) ([]*leave.Balance, error)
	SetBalance(ctx context.Context, employeeID string, t leave.Type, year int, totalDays float64) (*leave.Balance, error)
}

type leaveHandler struct {
	service LeaveService
	logger  *slog.Logger
}

type leaveRequestView struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employee_id"`
	Type         string    `json:"type"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Days         float64   `json:"days"`
	Reason       string    `json:"reason,omitempty"`
	Status       string    `json:"status"`
	DecidedBy    string    `json:"decided_by,omitempty"`
	DecisionNote string    `json:"decision_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type balanceView struct {
	EmployeeID string  `json:"employee_id"`
	Type       string  `json:"type"`
	Year       int     `json:"year"`
	TotalDays  float64 `json:"total_days"`
	UsedDays   float64 `json:"used_days"`
	Available  float64 `json:"available"`
}

// listRequests handles GET /api/v1/leave/requests. Filters: employee_id
// (empty means the caller), status (empty means all).
func (h *leaveHandler) listRequests(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")
	if employeeID == "" {
		employeeID = employeeIDFromContext(r.Context())
	}
	status := leave.Status(r.URL.Query().Get("status"))

	requests, err := h.service.Requests(r.Context(), employeeID, status)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	views := make([]leaveRequestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, newLeaveRequestView(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": views}, h.logger)
}

type decisionRequest struct {
	Note string `json:"note,omitempty"`
}

// approve handles POST /api/v1/leave/requests/{id}/approve. The caller
// is recorded as the approver.
func (h *leaveHandler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// reject handles POST /api/v1/leave/requests/{id}/reject.
func (h *leaveHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *leaveHandler) decide(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id uuid.UUID, approver, note string) (*leave.Request, error),
) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, hrerr.Validationf("request id is not a valid UUID"), h.logger)
		return
	}

	var body decisionRequest
	if r.Body != nil {
		// The note is optional; an empty body is fine.
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&body)
	}

	req, err := fn(r.Context(), id, employeeIDFromContext(r.Context()), body.Note)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, newLeaveRequestView(req), h.logger)
}

// listBalances handles GET /api/v1/leave/balances.
func (h *leaveHandler) listBalances(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")
	if employeeID == "" {
		employeeID = employeeIDFromContext(r.Context())
	}
	year := queryInt(r, "year", 0, 9999)

	balances, err := h.service.Balances(r.Context(), employeeID, year)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	views := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, balanceView{
			EmployeeID: b.EmployeeID,
			Type:       string(b.Type),
			Year:       b.Year,
			TotalDays:  b.TotalDays,
			UsedDays:   b.UsedDays,
			Available:  b.Available(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": views}, h.logger)
}

type setBalanceRequest struct {
	EmployeeID string  `json:"employee_id"`
	Type       string  `json:"type"`
	Year       int     `json:"year"`
	TotalDays  float64 `json:"total_days"`
}

// setBalance handles PUT /api/v1/leave/balances. Used days are never
// touched here; only the allocation changes.
func (h *leaveHandler) setBalance(w http.ResponseWriter, r *http.Request) {
	var body setBalanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	balance, err := h.service.SetBalance(r.Context(), body.EmployeeID, leave.Type(body.Type), body.Year, body.TotalDays)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, balanceView{
		EmployeeID: balance.EmployeeID,
		Type:       string(balance.Type),
		Year:       balance.Year,
		TotalDays:  balance.TotalDays,
		UsedDays:   balance.UsedDays,
		Available:  balance.Available(),
	}, h.logger)
}

func newLeaveRequestView(req *leave.Request) leaveRequestView {
	return leaveRequestView{
		ID:           req.ID.String(),
		EmployeeID:   req.EmployeeID,
		Type:         string(req.Type),
		StartDate:    req.StartDate.Format(time.DateOnly),
		EndDate:      req.EndDate.Format(time.DateOnly),
		Days:         req.Days,
		Reason:       req.Reason,
		Status:       string(req.Status),
		DecidedBy:    req.DecidedBy,
		DecisionNote: req.DecisionNote,
		CreatedAt:    req.CreatedAt,
	}
}
