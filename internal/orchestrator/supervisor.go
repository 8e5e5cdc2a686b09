package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hrmate/hrmate/internal/agent"
)

const supervisorSystem = `You are the routing supervisor of an HR chatbot. You never answer
HR questions yourself. Pick the specialist tool whose description matches the
user's request and forward the request to it, then relay its answer back as
your final answer. For policy or general HR questions use search_policies.
If no tool fits, say what you can help with.`

// AskAgentInput forwards a request to a specialist agent.
type AskAgentInput struct {
	Request string `json:"request" jsonschema:"the user's request, rephrased self-contained if needed"`
}

// newSupervisor wraps the domain agents and the policy searcher as
// tools of a top-level routing agent. Tool failures inside a specialist
// surface as observations of the supervisor loop, so a broken
// specialist still yields a readable answer.
func (o *Orchestrator) newSupervisor(gen agent.Generator, maxIters int, logger *slog.Logger) (*agent.Agent, error) {
	tools := make([]*agent.Tool, 0, 4)
	for _, sub := range []*agent.Agent{o.leave, o.attendance, o.payroll} {
		tools = append(tools, o.agentTool(sub))
	}
	tools = append(tools, &agent.Tool{
		Name:        "search_policies",
		Description: "Answer HR policy and general HR questions from the company policy corpus.",
		InputSchema: agent.SchemaFor[AskAgentInput](),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			in, err := agent.DecodeArgs[AskAgentInput](args)
			if err != nil {
				return "", err
			}
			ans, err := o.policies.Search(ctx, in.Request)
			if err != nil {
				return "", err
			}
			return ans.Text, nil
		},
	})

	registry, err := agent.NewRegistry(tools...)
	if err != nil {
		return nil, err
	}
	return agent.New(agent.Config{
		Name:          agentSupervisor,
		Description:   "Routes requests to the right HR specialist.",
		System:        supervisorSystem,
		Registry:      registry,
		Generator:     gen,
		MaxIterations: maxIters,
		Logger:        logger,
	})
}

// agentTool exposes one domain agent as a supervisor tool. The
// specialist runs its own full reasoning loop over the forwarded
// request.
func (o *Orchestrator) agentTool(sub *agent.Agent) *agent.Tool {
	return &agent.Tool{
		Name:        "ask_" + sub.Name() + "_agent",
		Description: sub.Description(),
		InputSchema: agent.SchemaFor[AskAgentInput](),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			in, err := agent.DecodeArgs[AskAgentInput](args)
			if err != nil {
				return "", err
			}
			res, err := sub.Process(ctx, in.Request, nil)
			if err != nil {
				return "", fmt.Errorf("%s agent: %w", sub.Name(), err)
			}
			return res.Response, nil
		},
	}
}
