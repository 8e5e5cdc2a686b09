package agent

import (
	"strings"
	"testing"
)

func TestNewRegistry_RejectsInvalidTools(t *testing.T) {
	valid := echoTool("echo")

	tests := []struct {
		name    string
		tools   []*Tool
		wantMsg string
	}{
		{"duplicate names", []*Tool{valid, echoTool("echo")}, "duplicate"},
		{"missing name", []*Tool{{Description: "d", InputSchema: valid.InputSchema, Handler: valid.Handler}}, "name"},
		{"missing description", []*Tool{{Name: "x", InputSchema: valid.InputSchema, Handler: valid.Handler}}, "description"},
		{"missing schema", []*Tool{{Name: "x", Description: "d", Handler: valid.Handler}}, "schema"},
		{"missing handler", []*Tool{{Name: "x", Description: "d", InputSchema: valid.InputSchema}}, "handler"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.tools...)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("NewRegistry() error = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestRegistry_OrderAndLookup(t *testing.T) {
	r, err := NewRegistry(echoTool("b"), echoTool("a"), echoTool("c"))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	names := r.Names()
	if len(names) != 3 || names[0] != "b" || names[1] != "a" || names[2] != "c" {
		t.Errorf("Names() = %v, want registration order", names)
	}

	if _, ok := r.Get("a"); !ok {
		t.Error("Get(a) not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) found")
	}
}

func TestRegistry_Describe(t *testing.T) {
	r, err := NewRegistry(echoTool("echo"))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	desc := r.Describe()
	if !strings.Contains(desc, "echo") || !strings.Contains(desc, "input schema") {
		t.Errorf("Describe() = %q", desc)
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantTool string
		wantText string
		wantErr  bool
	}{
		{"tool call", `{"tool": "check_leave_balance", "args": {"year": 2026}}`, "check_leave_balance", "", false},
		{"final answer", `{"final_answer": "you have 12 days"}`, "", "you have 12 days", false},
		{"fenced json", "```json\n{\"final_answer\": \"ok\"}\n```", "", "ok", false},
		{"prose", "I think I should check the balance", "", "", true},
		{"both set", `{"tool": "x", "final_answer": "y"}`, "", "", true},
		{"neither set", `{"args": {}}`, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDecision(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecision() error = %v", err)
			}
			if tt.wantTool != "" {
				if d.ToolCall == nil || d.ToolCall.Name != tt.wantTool {
					t.Errorf("decision = %+v, want tool %q", d, tt.wantTool)
				}
				return
			}
			if d.Final != tt.wantText {
				t.Errorf("final = %q, want %q", d.Final, tt.wantText)
			}
		})
	}
}
