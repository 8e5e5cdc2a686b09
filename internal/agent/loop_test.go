package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hrmate/hrmate/internal/hrerr"
	"github.com/hrmate/hrmate/internal/session"
	"github.com/hrmate/hrmate/internal/testutil"
)

// scriptedGenerator replays a fixed decision sequence and records the
// prompts it saw.
type scriptedGenerator struct {
	decisions []*Decision
	errs      []error
	calls     int
	prompts   []string
	systems   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, req *Request) (*Decision, error) {
	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, req.Prompt)
	g.systems = append(g.systems, req.System)
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	if i < len(g.decisions) {
		return g.decisions[i], nil
	}
	return &Decision{Final: "fallback answer"}, nil
}

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its input",
		InputSchema: SchemaFor[struct {
			Text string `json:"text"`
		}](),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("echo: %v", args["text"]), nil
		},
	}
}

func failingTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "always fails",
		InputSchema: SchemaFor[struct{}](),
		Handler: func(context.Context, map[string]any) (string, error) {
			return "", errors.New("insufficient balance")
		},
	}
}

func panickingTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "always panics",
		InputSchema: SchemaFor[struct{}](),
		Handler: func(context.Context, map[string]any) (string, error) {
			panic("boom")
		},
	}
}

func newLoopAgent(t *testing.T, gen Generator, tools ...*Tool) *Agent {
	t.Helper()
	registry, err := NewRegistry(tools...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	a, err := New(Config{
		Name:      "test",
		System:    "You are a test agent.",
		Registry:  registry,
		Generator: gen,
		Logger:    testutil.QuietLogger(),
		Now:       func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestProcess_ToolThenFinal(t *testing.T) {
	gen := &scriptedGenerator{decisions: []*Decision{
		{ToolCall: &ToolCall{Name: "echo", Args: map[string]any{"text": "hi"}}},
		{Final: "the echo said hi"},
	}}
	a := newLoopAgent(t, gen, echoTool("echo"))

	res, err := a.Process(context.Background(), "say hi", nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Response != "the echo said hi" || res.Degraded {
		t.Errorf("result = %+v", res)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].Observation != "echo: hi" {
		t.Errorf("tool calls = %+v", res.ToolCalls)
	}
	if res.AgentUsed != "test" {
		t.Errorf("agent_used = %q", res.AgentUsed)
	}
}

func TestProcess_FailingToolBecomesObservation(t *testing.T) {
	// Scenario: a tool that always raises. The loop must observe the
	// failure as text and still end the turn cleanly.
	gen := &scriptedGenerator{decisions: []*Decision{
		{ToolCall: &ToolCall{Name: "apply", Args: map[string]any{}}},
		{Final: "sorry, that did not work"},
	}}
	a := newLoopAgent(t, gen, failingTool("apply"))

	res, err := a.Process(context.Background(), "apply for leave", nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", res.ToolCalls)
	}
	obs := res.ToolCalls[0].Observation
	if !strings.Contains(obs, "insufficient balance") {
		t.Errorf("observation %q should carry the tool error", obs)
	}
	// The next prompt must contain the observation for self-correction.
	if !strings.Contains(gen.prompts[1], "insufficient balance") {
		t.Errorf("second prompt does not feed the observation back")
	}
}

func TestProcess_IterationCap(t *testing.T) {
	// A generator that always asks for another tool call must be cut
	// off at the cap with a degraded best-effort answer, not an error.
	var decisions []*Decision
	for range 10 {
		decisions = append(decisions, &Decision{
			ToolCall: &ToolCall{Name: "loop", Args: map[string]any{}},
		})
	}
	gen := &scriptedGenerator{decisions: decisions}
	a := newLoopAgent(t, gen, failingTool("loop"))

	res, err := a.Process(context.Background(), "spin forever", nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !res.Degraded {
		t.Error("capped turn must be marked degraded")
	}
	if res.Response == "" {
		t.Error("capped turn must still carry a best-effort answer")
	}
	if gen.calls != DefaultMaxIterations {
		t.Errorf("generator called %d times, want %d", gen.calls, DefaultMaxIterations)
	}
}

func TestProcess_PanickingToolIsContained(t *testing.T) {
	gen := &scriptedGenerator{decisions: []*Decision{
		{ToolCall: &ToolCall{Name: "bomb", Args: map[string]any{}}},
		{Final: "recovered"},
	}}
	a := newLoopAgent(t, gen, panickingTool("bomb"))

	res, err := a.Process(context.Background(), "explode", nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(res.ToolCalls[0].Observation, "failed unexpectedly") {
		t.Errorf("observation = %q", res.ToolCalls[0].Observation)
	}
	if res.Response != "recovered" {
		t.Errorf("response = %q", res.Response)
	}
}

func TestProcess_UnknownToolBecomesObservation(t *testing.T) {
	gen := &scriptedGenerator{decisions: []*Decision{
		{ToolCall: &ToolCall{Name: "no_such_tool", Args: map[string]any{}}},
		{Final: "done"},
	}}
	a := newLoopAgent(t, gen, echoTool("echo"))

	res, err := a.Process(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	obs := res.ToolCalls[0].Observation
	if !strings.Contains(obs, "Unknown tool") || !strings.Contains(obs, "echo") {
		t.Errorf("observation %q should name available tools", obs)
	}
}

func TestProcess_ParseErrorSelfCorrects(t *testing.T) {
	gen := &scriptedGenerator{
		errs:      []error{hrerr.AgentExecutionf("reply is not valid JSON")},
		decisions: []*Decision{nil, {Final: "second try worked"}},
	}
	a := newLoopAgent(t, gen, echoTool("echo"))

	res, err := a.Process(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Response != "second try worked" {
		t.Errorf("response = %q", res.Response)
	}
	if !strings.Contains(gen.prompts[1], "could not be processed") {
		t.Error("parse failure was not fed back as an observation")
	}
}

func TestProcess_InfrastructureErrorPropagates(t *testing.T) {
	wantErr := hrerr.Externalf("model unreachable")
	gen := &scriptedGenerator{errs: []error{wantErr}}
	a := newLoopAgent(t, gen, echoTool("echo"))

	_, err := a.Process(context.Background(), "q", nil)
	if !hrerr.IsExternal(err) {
		t.Errorf("Process() error = %v, want external", err)
	}
}

func TestProcess_HistoryAndDateInPrompt(t *testing.T) {
	gen := &scriptedGenerator{decisions: []*Decision{{Final: "ok"}}}
	a := newLoopAgent(t, gen, echoTool("echo"))

	history := []*session.Message{
		{Role: session.RoleUser, Content: "earlier question"},
		{Role: session.RoleAssistant, Content: "earlier answer"},
	}
	if _, err := a.Process(context.Background(), "follow-up", history); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "earlier question") || !strings.Contains(prompt, "earlier answer") {
		t.Error("history missing from prompt")
	}
	if !strings.Contains(prompt, "follow-up") {
		t.Error("query missing from prompt")
	}
	// The clock is injected so agents can resolve relative dates.
	if !strings.Contains(gen.systems[0], "31 August 2026") {
		t.Errorf("system prompt lacks today's date: %q", gen.systems[0])
	}
}

func TestProcess_ContextCancelled(t *testing.T) {
	gen := &scriptedGenerator{decisions: []*Decision{{Final: "ok"}}}
	a := newLoopAgent(t, gen, echoTool("echo"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Process(ctx, "q", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}
}
