package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caldew/workdesk/internal/llm"
)

// Executor runs one tool invocation. Implementations return a failed
// outcome rather than an error where they can; returned errors and
// panics are converted to failed outcomes so the model always sees a
// structured result.
type Executor func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	def  llm.Tool
	exec Executor
}

// Registry is the name-to-executor dispatch table shared by all
// provider endpoints.
type Registry struct {
	entries map[string]entry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]entry{}}
}

func (r *Registry) Register(def llm.Tool, exec Executor) {
	if _, ok := r.entries[def.Name]; !ok {
		r.order = append(r.order, def.Name)
	}
	r.entries[def.Name] = entry{def: def, exec: exec}
}

// Definitions returns the tool catalog in registration order.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Execute dispatches one call. An unknown name and any executor failure
// both yield a failed outcome, never an error: the model decides how to
// react.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) (out llm.ToolOutcome) {
	out = llm.ToolOutcome{CallID: call.ID, Name: call.Name}

	e, ok := r.entries[call.Name]
	if !ok {
		out.Error = fmt.Sprintf("Unknown function: %s", call.Name)
		return out
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool panicked", "tool", call.Name, "panic", rec)
			out.Success = false
			out.Data = nil
			out.Error = fmt.Sprintf("tool %s panicked", call.Name)
		}
	}()

	data, err := e.exec(ctx, call.Arguments)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Success = true
	out.Data = data
	return out
}
