package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/caldew/workdesk/internal/config"
	"github.com/caldew/workdesk/internal/domain"
	"github.com/caldew/workdesk/internal/llm"
	"github.com/caldew/workdesk/internal/tools"
)

// FallbackMessage is returned when the round cap is exhausted in
// fallback mode.
const FallbackMessage = "I apologize, but I encountered an error processing your request. Please try again."

// RoundLimitMode selects what happens when the model is still asking
// for tools after the last allowed round.
type RoundLimitMode int

const (
	// RoundLimitFallback returns FallbackMessage with the accumulated
	// tool calls.
	RoundLimitFallback RoundLimitMode = iota
	// RoundLimitError surfaces domain.ErrRoundLimit instead.
	RoundLimitError
)

func ParseRoundLimitMode(s string) RoundLimitMode {
	if s == "error" {
		return RoundLimitError
	}
	return RoundLimitFallback
}

// Orchestrator drives the bounded tool-calling conversation shared by
// every provider endpoint.
type Orchestrator struct {
	registry  *tools.Registry
	maxRounds int
	onLimit   RoundLimitMode
}

func NewOrchestrator(registry *tools.Registry, onLimit RoundLimitMode) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		maxRounds: config.MaxToolRounds,
		onLimit:   onLimit,
	}
}

// Result is the outcome of one full chat turn.
type Result struct {
	Message   string
	ToolCalls []domain.ToolCall
	Citations []domain.Citation
	Usage     domain.Usage
}

// Run sends the request and loops while the model requests tools, up to
// the round cap. All tools of one round are dispatched concurrently;
// rounds themselves are strictly sequential because each round's input
// depends on the previous round's results.
func (o *Orchestrator) Run(ctx context.Context, provider llm.Provider, req llm.Request) (*Result, error) {
	req.Tools = o.registry.Definitions()

	thread, err := provider.Begin(req)
	if err != nil {
		return nil, fmt.Errorf("begin %s thread: %w", provider.Name(), err)
	}

	var records []domain.ToolCall
	var usage domain.Usage

	for round := 0; round < o.maxRounds; round++ {
		turn, err := thread.Send(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s round %d: %w", provider.Name(), round+1, err)
		}
		usage = usage.Add(turn.Usage)
		records = append(records, turn.ServerCalls...)

		if len(turn.ToolCalls) == 0 {
			return &Result{
				Message:   turn.Text,
				ToolCalls: records,
				Citations: turn.Citations,
				Usage:     usage,
			}, nil
		}

		outcomes := o.executeAll(ctx, turn.ToolCalls)
		for i, call := range turn.ToolCalls {
			records = append(records, domain.ToolCall{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
				Result: &domain.ToolResult{
					Success: outcomes[i].Success,
					Data:    outcomes[i].Data,
					Error:   outcomes[i].Error,
				},
			})
		}
		thread.AddToolResults(outcomes)
	}

	slog.Warn("tool-calling round limit reached", "provider", provider.Name(), "rounds", o.maxRounds)
	if o.onLimit == RoundLimitError {
		return nil, domain.ErrRoundLimit
	}
	return &Result{Message: FallbackMessage, ToolCalls: records, Usage: usage}, nil
}

// executeAll fans the round's tool calls out concurrently and collects
// the outcomes in call order; there is no ordering guarantee among the
// executions themselves.
func (o *Orchestrator) executeAll(ctx context.Context, calls []llm.ToolCall) []llm.ToolOutcome {
	outcomes := make([]llm.ToolOutcome, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			outcomes[i] = o.registry.Execute(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return outcomes
}
