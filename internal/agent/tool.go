// Package agent implements the bounded tool-calling reasoning loop and
// the domain agents built on it (leave, attendance, payroll).
//
// An agent turn is an explicit state machine: the generator either
// requests a tool call or emits a final answer; tool output (including
// every tool failure) is fed back as an observation string, and a hard
// iteration cap bounds the loop. The language model sits behind the
// small [Generator] interface so the loop has no provider dependency.
package agent

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Handler executes a tool call. Arguments arrive as decoded JSON; the
// returned string is what the reasoning loop observes. Handlers report
// failures as errors — the loop, not the handler, turns them into
// observation text.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool is one named capability available to an agent: a declared input
// schema plus a handler.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler
}

func (t *Tool) validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Description == "" {
		return fmt.Errorf("tool %q: description is required", t.Name)
	}
	if t.InputSchema == nil {
		return fmt.Errorf("tool %q: input schema is required", t.Name)
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q: handler is required", t.Name)
	}
	return nil
}

// SchemaFor builds the JSON schema for a tool's typed input struct.
// Panics on failure: schemas are declared at startup from static types,
// so an error here is a programming bug.
func SchemaFor[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("BUG: building schema for %T: %v", *new(T), err))
	}
	return s
}
