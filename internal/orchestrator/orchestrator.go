// Package orchestrator routes chat turns to domain agents and contains
// their failures.
//
// Two routing styles are supported. Static routing classifies the query
// by intent and dispatches directly to a domain agent or the policy
// searcher. Supervisor routing wraps the domain agents as tools of a
// top-level agent and lets the model decide.
//
// Whatever goes wrong downstream, Process answers: panics and errors
// from agents degrade to an apology with AgentUsed set to "error",
// never to a failed HTTP turn.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrmate/hrmate/internal/agent"
	"github.com/hrmate/hrmate/internal/config"
	"github.com/hrmate/hrmate/internal/hrerr"
	"github.com/hrmate/hrmate/internal/intent"
	"github.com/hrmate/hrmate/internal/policy"
	"github.com/hrmate/hrmate/internal/session"
)

// Agent identifiers reported in results for turns no domain agent ran.
const (
	agentPolicy     = "policy"
	agentRouter     = "router"
	agentSupervisor = "supervisor"
	agentError      = "error"
)

const apology = "I'm sorry, something went wrong while handling your request. " +
	"Please try again in a moment, or contact HR directly if it keeps failing."

const unknownHelp = "I can help with leave (balances, applications, cancellations), " +
	"attendance and holidays, payroll and payslips, and HR policy questions. " +
	"What would you like to know?"

// Orchestrator owns the routing decision for each chat turn.
type Orchestrator struct {
	leave      *agent.Agent
	attendance *agent.Agent
	payroll    *agent.Agent
	policies   policy.Searcher
	supervisor *agent.Agent
	mode       string
	logger     *slog.Logger
}

// Config wires an Orchestrator.
type Config struct {
	Leave      *agent.Agent
	Attendance *agent.Agent
	Payroll    *agent.Agent
	Policies   policy.Searcher
	// Mode selects the routing style, config.RouterStatic or
	// config.RouterSupervisor. Empty means static.
	Mode string
	// Generator drives the supervisor loop; required only in
	// supervisor mode.
	Generator agent.Generator
	// MaxIterations caps the supervisor loop; <= 0 means the agent
	// default.
	MaxIterations int
	Logger        *slog.Logger
}

// New builds an Orchestrator. In supervisor mode the domain agents are
// additionally wrapped as tools of a top-level routing agent.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Leave == nil || cfg.Attendance == nil || cfg.Payroll == nil {
		return nil, fmt.Errorf("orchestrator: all three domain agents are required")
	}
	if cfg.Policies == nil {
		return nil, fmt.Errorf("orchestrator: policy searcher is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = config.RouterStatic
	}
	if cfg.Mode != config.RouterStatic && cfg.Mode != config.RouterSupervisor {
		return nil, fmt.Errorf("orchestrator: unknown router mode %q", cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	o := &Orchestrator{
		leave:      cfg.Leave,
		attendance: cfg.Attendance,
		payroll:    cfg.Payroll,
		policies:   cfg.Policies,
		mode:       cfg.Mode,
		logger:     cfg.Logger,
	}

	if cfg.Mode == config.RouterSupervisor {
		if cfg.Generator == nil {
			return nil, fmt.Errorf("orchestrator: supervisor mode requires a generator")
		}
		sup, err := o.newSupervisor(cfg.Generator, cfg.MaxIterations, cfg.Logger)
		if err != nil {
			return nil, err
		}
		o.supervisor = sup
	}
	return o, nil
}

// Mode returns the active routing style.
func (o *Orchestrator) Mode() string { return o.mode }

// Process handles one chat turn for the given employee.
//
// It never returns an error to the caller: agent failures, policy
// backend failures, and panics all degrade to an answer the user can
// read, with AgentUsed recording what actually handled (or failed) the
// turn.
func (o *Orchestrator) Process(ctx context.Context, employeeID, query string, history []*session.Message) (result *agent.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator panic", "panic", r, "query_len", len(query))
			result = &agent.Result{Response: apology, AgentUsed: agentError, Degraded: true}
		}
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return &agent.Result{Response: unknownHelp, AgentUsed: agentRouter}
	}

	ctx = agent.WithUser(ctx, employeeID)

	var (
		res *agent.Result
		err error
	)
	if o.mode == config.RouterSupervisor {
		res, err = o.supervisor.Process(ctx, query, history)
	} else {
		res, err = o.routeStatic(ctx, query, history)
	}
	if err != nil {
		o.logger.Error("turn failed", "mode", o.mode, "error", err)
		return &agent.Result{Response: apology, AgentUsed: agentError, Degraded: true}
	}
	return res
}

// routeStatic dispatches by classified intent.
func (o *Orchestrator) routeStatic(ctx context.Context, query string, history []*session.Message) (*agent.Result, error) {
	it := intent.Classify(query)
	o.logger.Debug("routed query", "intent", string(it))

	switch it {
	case intent.Leave:
		return o.leave.Process(ctx, query, history)
	case intent.Attendance:
		return o.attendance.Process(ctx, query, history)
	case intent.Payroll:
		return o.payroll.Process(ctx, query, history)
	case intent.Policy, intent.GeneralHR:
		return o.answerPolicy(ctx, query), nil
	default:
		return &agent.Result{Response: unknownHelp, AgentUsed: agentRouter}, nil
	}
}

// answerPolicy resolves a policy or general HR question against the
// policy corpus. Backend failures degrade to a referral, not an error.
func (o *Orchestrator) answerPolicy(ctx context.Context, query string) *agent.Result {
	ans, err := o.policies.Search(ctx, query)
	switch {
	case err == nil:
		return &agent.Result{
			Response:  ans.Text,
			AgentUsed: agentPolicy,
			Sources:   ans.Sources,
		}
	case hrerr.IsNotFound(err):
		return &agent.Result{
			Response: "I couldn't find a policy that covers that. " +
				"Try different wording, or reach out to HR for the details.",
			AgentUsed: agentPolicy,
		}
	case hrerr.IsExternal(err):
		o.logger.Warn("policy search unavailable", "error", err)
		return &agent.Result{
			Response: "Policy search isn't available right now. " +
				"Please contact HR directly for policy questions.",
			AgentUsed: agentPolicy,
			Degraded:  true,
		}
	default:
		o.logger.Error("policy search failed", "error", err)
		return &agent.Result{Response: apology, AgentUsed: agentError, Degraded: true}
	}
}
