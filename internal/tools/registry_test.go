package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/caldew/workdesk/internal/llm"
)

func TestExecuteUnknownFunction(t *testing.T) {
	r := NewRegistry()

	out := r.Execute(context.Background(), llm.ToolCall{ID: "c1", Name: "does_not_exist"})
	if out.Success {
		t.Fatal("expected failure for unknown function")
	}
	if out.Error != "Unknown function: does_not_exist" {
		t.Fatalf("unexpected error message: %q", out.Error)
	}
	if out.CallID != "c1" {
		t.Fatalf("expected call id preserved, got %q", out.CallID)
	}
}

func TestExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register(llm.Tool{Name: "echo"}, func(_ context.Context, args map[string]any) (any, error) {
		return map[string]any{"echo": args["value"]}, nil
	})

	out := r.Execute(context.Background(), llm.ToolCall{
		ID: "c2", Name: "echo", Arguments: map[string]any{"value": "hi"},
	})
	if !out.Success {
		t.Fatalf("expected success, got error %q", out.Error)
	}
	data, ok := out.Data.(map[string]any)
	if !ok || data["echo"] != "hi" {
		t.Fatalf("unexpected data: %#v", out.Data)
	}
}

func TestExecuteError(t *testing.T) {
	r := NewRegistry()
	r.Register(llm.Tool{Name: "boom"}, func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("upstream gone")
	})

	out := r.Execute(context.Background(), llm.ToolCall{ID: "c3", Name: "boom"})
	if out.Success {
		t.Fatal("expected failure")
	}
	if out.Error != "upstream gone" {
		t.Fatalf("unexpected error: %q", out.Error)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(llm.Tool{Name: "panics"}, func(context.Context, map[string]any) (any, error) {
		panic("nope")
	})

	out := r.Execute(context.Background(), llm.ToolCall{ID: "c4", Name: "panics"})
	if out.Success {
		t.Fatal("expected failure after panic")
	}
	if out.Error == "" {
		t.Fatal("expected panic to produce an error message")
	}
}

func TestDefinitionsKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(llm.Tool{Name: "first"}, func(context.Context, map[string]any) (any, error) { return nil, nil })
	r.Register(llm.Tool{Name: "second"}, func(context.Context, map[string]any) (any, error) { return nil, nil })

	defs := r.Definitions()
	if len(defs) != 2 || defs[0].Name != "first" || defs[1].Name != "second" {
		t.Fatalf("unexpected definitions: %#v", defs)
	}
}
