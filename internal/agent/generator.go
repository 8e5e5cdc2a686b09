package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Request is one generation step: the agent's system prompt plus the
// composed turn prompt (query, history, scratchpad, tool table).
type Request struct {
	System string
	Prompt string
}

// ToolCall is the generator asking for one tool invocation.
type ToolCall struct {
	Name string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Decision is the generator's move for one loop cycle: exactly one of
// ToolCall or Final is set.
type Decision struct {
	ToolCall *ToolCall
	Final    string
}

// Generator produces the next Decision. Implementations wrap a language
// model; tests use scripted fakes.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Decision, error)
}

// decisionWire is the JSON shape the model is instructed to emit.
type decisionWire struct {
	Tool        string         `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	FinalAnswer string         `json:"final_answer,omitempty"`
}

// ParseDecision parses a model's raw text into a Decision. Markdown
// code fences around the JSON are tolerated. A reply that is neither
// valid JSON nor carries a tool/final_answer field is a parse error;
// the loop feeds it back as an observation rather than aborting.
func ParseDecision(raw string) (*Decision, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var wire decisionWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	switch {
	case wire.Tool != "" && wire.FinalAnswer != "":
		return nil, fmt.Errorf("reply sets both tool and final_answer")
	case wire.Tool != "":
		return &Decision{ToolCall: &ToolCall{Name: wire.Tool, Args: wire.Args}}, nil
	case wire.FinalAnswer != "":
		return &Decision{Final: wire.FinalAnswer}, nil
	default:
		return nil, fmt.Errorf("reply carries neither tool nor final_answer")
	}
}
