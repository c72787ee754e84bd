package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/caldew/workdesk/internal/domain"
	"github.com/caldew/workdesk/internal/llm"
	"github.com/caldew/workdesk/internal/tools"
)

type scriptedThread struct {
	turns     []*llm.Turn
	sends     int
	collected [][]llm.ToolOutcome
}

func (t *scriptedThread) Send(context.Context) (*llm.Turn, error) {
	turn := t.turns[t.sends%len(t.turns)]
	t.sends++
	return turn, nil
}

func (t *scriptedThread) AddToolResults(results []llm.ToolOutcome) {
	t.collected = append(t.collected, results)
}

type scriptedProvider struct {
	thread *scriptedThread
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Begin(llm.Request) (llm.Thread, error) { return p.thread, nil }

func echoRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	r.Register(llm.Tool{Name: "echo"}, func(_ context.Context, args map[string]any) (any, error) {
		return args["value"], nil
	})
	return r
}

func TestRunReturnsFinalTurn(t *testing.T) {
	thread := &scriptedThread{turns: []*llm.Turn{{
		Text:      "done",
		Citations: []domain.Citation{{URL: "https://example.com", Title: "Example"}},
		Usage:     domain.Usage{PromptTokens: 10, CompletionTokens: 5},
	}}}
	o := NewOrchestrator(echoRegistry(t), RoundLimitFallback)

	result, err := o.Run(context.Background(), &scriptedProvider{thread: thread}, llm.Request{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Message != "done" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if len(result.Citations) != 1 {
		t.Fatalf("expected citation, got %#v", result.Citations)
	}
	if thread.sends != 1 {
		t.Fatalf("expected 1 send, got %d", thread.sends)
	}
}

func TestRunExecutesToolsAndContinues(t *testing.T) {
	thread := &scriptedThread{turns: []*llm.Turn{
		{
			ToolCalls: []llm.ToolCall{
				{ID: "a", Name: "echo", Arguments: map[string]any{"value": "one"}},
				{ID: "b", Name: "echo", Arguments: map[string]any{"value": "two"}},
				{ID: "c", Name: "missing"},
			},
			Usage: domain.Usage{PromptTokens: 3},
		},
		{Text: "final", Usage: domain.Usage{PromptTokens: 4, CompletionTokens: 2}},
	}}
	o := NewOrchestrator(echoRegistry(t), RoundLimitFallback)

	result, err := o.Run(context.Background(), &scriptedProvider{thread: thread}, llm.Request{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Message != "final" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if len(result.ToolCalls) != 3 {
		t.Fatalf("expected 3 tool call records, got %d", len(result.ToolCalls))
	}
	if !result.ToolCalls[0].Result.Success || result.ToolCalls[0].Result.Data != "one" {
		t.Fatalf("unexpected first result: %#v", result.ToolCalls[0].Result)
	}
	if result.ToolCalls[2].Result.Success || result.ToolCalls[2].Result.Error != "Unknown function: missing" {
		t.Fatalf("unexpected unknown-tool result: %#v", result.ToolCalls[2].Result)
	}
	if len(thread.collected) != 1 || len(thread.collected[0]) != 3 {
		t.Fatalf("expected one batch of 3 outcomes, got %#v", thread.collected)
	}
	// Outcomes stay in call order regardless of execution order.
	if thread.collected[0][1].CallID != "b" {
		t.Fatalf("outcomes out of order: %#v", thread.collected[0])
	}
	if got := result.Usage.PromptTokens; got != 7 {
		t.Fatalf("expected summed prompt tokens 7, got %d", got)
	}
}

// relayThread folds tool outcomes into its final answer the way a model
// would, so the full registry round trip is observable.
type relayThread struct {
	sends    int
	outcomes []llm.ToolOutcome
}

func (t *relayThread) Send(context.Context) (*llm.Turn, error) {
	t.sends++
	if t.sends == 1 {
		return &llm.Turn{ToolCalls: []llm.ToolCall{{
			ID:        "t1",
			Name:      "get_current_time",
			Arguments: map[string]any{"format": "iso", "timezone": "UTC"},
		}}}, nil
	}
	return &llm.Turn{Text: "The time is " + llm.EncodeOutcome(t.outcomes[0])}, nil
}

func (t *relayThread) AddToolResults(results []llm.ToolOutcome) {
	t.outcomes = append(t.outcomes, results...)
}

type relayProvider struct {
	thread *relayThread
}

func (p *relayProvider) Name() string { return "relay" }

func (p *relayProvider) Begin(llm.Request) (llm.Thread, error) { return p.thread, nil }

func TestRunCurrentTimeToolFlow(t *testing.T) {
	registry := tools.NewRegistry()
	tools.RegisterCurrentTime(registry, func() time.Time {
		return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	})
	o := NewOrchestrator(registry, RoundLimitFallback)

	result, err := o.Run(context.Background(), &relayProvider{thread: &relayThread{}}, llm.Request{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(result.Message, "2025-03-14T15:09:26Z") {
		t.Fatalf("tool result missing from final message: %q", result.Message)
	}
	if len(result.ToolCalls) != 1 || !result.ToolCalls[0].Result.Success {
		t.Fatalf("unexpected tool call record: %#v", result.ToolCalls)
	}
}

func TestRunRoundLimitFallback(t *testing.T) {
	thread := &scriptedThread{turns: []*llm.Turn{{
		ToolCalls: []llm.ToolCall{{ID: "x", Name: "echo", Arguments: map[string]any{"value": "again"}}},
	}}}
	o := NewOrchestrator(echoRegistry(t), RoundLimitFallback)

	result, err := o.Run(context.Background(), &scriptedProvider{thread: thread}, llm.Request{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Message != FallbackMessage {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if thread.sends != 5 {
		t.Fatalf("expected exactly 5 rounds, got %d", thread.sends)
	}
	if len(result.ToolCalls) != 5 {
		t.Fatalf("expected 5 tool call records, got %d", len(result.ToolCalls))
	}
}

func TestRunRoundLimitError(t *testing.T) {
	thread := &scriptedThread{turns: []*llm.Turn{{
		ToolCalls: []llm.ToolCall{{ID: "x", Name: "echo", Arguments: map[string]any{"value": "again"}}},
	}}}
	o := NewOrchestrator(echoRegistry(t), RoundLimitError)

	_, err := o.Run(context.Background(), &scriptedProvider{thread: thread}, llm.Request{})
	if !errors.Is(err, domain.ErrRoundLimit) {
		t.Fatalf("expected ErrRoundLimit, got %v", err)
	}
}
