package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrmate/hrmate/internal/hrerr"
	"github.com/hrmate/hrmate/internal/session"
)

// DefaultMaxIterations bounds the reasoning loop when no explicit cap
// is configured.
const DefaultMaxIterations = 5

// ToolCallRecord is the audit trail of one tool invocation in a turn.
type ToolCallRecord struct {
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args,omitempty"`
	Observation string         `json:"observation"`
}

// Result is one agent turn's outcome. Degraded marks turns that hit
// the iteration cap and returned a best-effort answer.
type Result struct {
	Response  string
	AgentUsed string
	ToolCalls []ToolCallRecord
	Sources   []session.Source
	Degraded  bool
}

// Agent runs the bounded reasoning loop over a closed tool registry.
//
// State machine per turn:
//
//	Start -> {Thought -> Action -> Observation}* -> FinalAnswer
//	                                             |  IterationCapExceeded
//
// Tool failures and unparseable model replies never abort the turn:
// both are fed back as observations so the loop can self-correct.
type Agent struct {
	name        string
	description string
	system      string
	registry    *Registry
	gen         Generator
	maxIters    int
	now         func() time.Time
	logger      *slog.Logger
}

// Config configures an Agent.
type Config struct {
	// Name identifies the agent in results and logs ("leave", ...).
	Name string
	// Description is shown to the supervisor router when the agent is
	// wrapped as a tool.
	Description string
	// System is the domain system prompt.
	System string
	// Registry is the agent's closed tool set.
	Registry *Registry
	// Generator produces decisions.
	Generator Generator
	// MaxIterations caps the loop; <= 0 means DefaultMaxIterations.
	MaxIterations int
	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
	// Logger; nil means slog.Default().
	Logger *slog.Logger
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("agent %q: registry is required", cfg.Name)
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("agent %q: generator is required", cfg.Name)
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Agent{
		name:        cfg.Name,
		description: cfg.Description,
		system:      cfg.System,
		registry:    cfg.Registry,
		gen:         cfg.Generator,
		maxIters:    cfg.MaxIterations,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}, nil
}

// Name returns the agent's identifier.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's routing description.
func (a *Agent) Description() string { return a.description }

// Process runs one turn of the reasoning loop.
//
// The returned error is reserved for infrastructure failures (model
// unreachable, context cancelled); everything the loop can contain —
// tool errors, parse errors, the iteration cap — ends up in the Result.
func (a *Agent) Process(ctx context.Context, query string, history []*session.Message) (*Result, error) {
	result := &Result{AgentUsed: a.name}
	var steps []string

	for iter := 1; iter <= a.maxIters; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := &Request{
			System: a.systemPrompt(),
			Prompt: a.buildPrompt(query, history, steps),
		}

		decision, err := a.gen.Generate(ctx, req)
		if err != nil {
			if hrerr.IsAgentExecution(err) {
				// Unparseable reply: tell the model and let it retry
				// within the remaining budget.
				obs := fmt.Sprintf("Your reply could not be processed: %v. "+
					"Reply with a single JSON object using \"tool\"/\"args\" or \"final_answer\".", err)
				steps = append(steps, "Observation: "+obs)
				a.logger.Debug("agent parse error", "agent", a.name, "iteration", iter, "error", err)
				continue
			}
			return nil, err
		}

		if decision.Final != "" {
			result.Response = decision.Final
			a.logger.Debug("agent turn complete",
				"agent", a.name, "iterations", iter, "tool_calls", len(result.ToolCalls))
			return result, nil
		}

		call := decision.ToolCall
		obs := a.invoke(ctx, call)
		result.ToolCalls = append(result.ToolCalls, ToolCallRecord{
			Tool:        call.Name,
			Args:        call.Args,
			Observation: obs,
		})
		steps = append(steps,
			fmt.Sprintf("Action: called %s with %s", call.Name, compactArgs(call.Args)),
			"Observation: "+obs)
	}

	// Iteration cap exceeded: degrade to a best-effort answer built
	// from what the loop observed, never an error.
	result.Degraded = true
	result.Response = a.capExceededAnswer(result.ToolCalls)
	a.logger.Warn("agent iteration cap exceeded",
		"agent", a.name, "max_iterations", a.maxIters, "tool_calls", len(result.ToolCalls))
	return result, nil
}

// invoke runs one tool call and always comes back with observation
// text. Unknown tools, handler errors, and handler panics all become
// observations.
func (a *Agent) invoke(ctx context.Context, call *ToolCall) (obs string) {
	defer func() {
		if r := recover(); r != nil {
			obs = fmt.Sprintf("Tool %s failed unexpectedly: %v", call.Name, r)
			a.logger.Error("tool panic", "agent", a.name, "tool", call.Name, "panic", r)
		}
	}()

	tool, ok := a.registry.Get(call.Name)
	if !ok {
		return fmt.Sprintf("Unknown tool %q. Available tools: %s.",
			call.Name, strings.Join(a.registry.Names(), ", "))
	}

	out, err := tool.Handler(ctx, call.Args)
	if err != nil {
		return fmt.Sprintf("Tool %s failed: %v", call.Name, err)
	}
	return out
}

func (a *Agent) systemPrompt() string {
	return fmt.Sprintf("%s\n\nToday's date is %s.",
		a.system, a.now().UTC().Format("Monday, 2 January 2006"))
}

func (a *Agent) buildPrompt(query string, history []*session.Message, steps []string) string {
	var b strings.Builder

	b.WriteString("You can use the following tools:\n")
	b.WriteString(a.registry.Describe())
	b.WriteString("\nReply with exactly one JSON object per turn. To call a tool: " +
		`{"tool": "<name>", "args": {...}}. To answer the user: {"final_answer": "..."}.` + "\n")

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	fmt.Fprintf(&b, "\nUser query: %s\n", query)

	if len(steps) > 0 {
		b.WriteString("\nYour progress this turn:\n")
		for _, s := range steps {
			b.WriteString(s + "\n")
		}
		b.WriteString("\nContinue: call another tool or give the final answer.\n")
	}
	return b.String()
}

// capExceededAnswer builds the partial answer for a capped turn from
// the last observation, if any.
func (a *Agent) capExceededAnswer(calls []ToolCallRecord) string {
	if len(calls) == 0 {
		return "I wasn't able to work out an answer to that within my limits. " +
			"Could you rephrase the question?"
	}
	last := calls[len(calls)-1]
	return fmt.Sprintf("I couldn't fully complete that request. Here is what I found so far: %s",
		last.Observation)
}

func compactArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}
