package anthropic

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caldew/workdesk/internal/domain"
	"github.com/caldew/workdesk/internal/llm"
)

type fakeUpstream struct {
	status    int
	responses []string
	requests  []map[string]any
}

func (f *fakeUpstream) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("unexpected version header: %q", r.Header.Get("anthropic-version"))
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		f.requests = append(f.requests, req)

		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		resp := f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, resp)
	}
}

func newTestThread(t *testing.T, upstream *fakeUpstream, req llm.Request) llm.Thread {
	t.Helper()
	srv := httptest.NewServer(upstream.handler(t))
	t.Cleanup(srv.Close)

	client := NewClientWithBaseURL("test-key", srv.URL, 5)
	thread, err := client.Begin(req)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return thread
}

func TestSendParsesTextAndUsage(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{`{
		"content": [{"type": "text", "text": "hello there"}],
		"usage": {"input_tokens": 12, "output_tokens": 7}
	}`}}
	thread := newTestThread(t, upstream, llm.Request{
		System:   "be helpful",
		UserText: "hi",
		Tools:    []llm.Tool{{Name: "get_current_time", Parameters: map[string]any{"type": "object"}}},
	})

	turn, err := thread.Send(t.Context())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if turn.Text != "hello there" {
		t.Fatalf("unexpected text: %q", turn.Text)
	}
	if turn.Usage.PromptTokens != 12 || turn.Usage.CompletionTokens != 7 {
		t.Fatalf("unexpected usage: %+v", turn.Usage)
	}

	req := upstream.requests[0]
	if req["system"] != "be helpful" {
		t.Fatalf("system not sent: %v", req["system"])
	}
	tools := req["tools"].([]any)
	if len(tools) != 2 {
		t.Fatalf("expected client tool plus web_search, got %d", len(tools))
	}
	last := tools[1].(map[string]any)
	if last["type"] != "web_search_20250305" || last["max_uses"] != float64(5) {
		t.Fatalf("unexpected web search tool: %#v", last)
	}
}

func TestSendParsesToolCalls(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{`{
		"content": [
			{"type": "text", "text": "let me check"},
			{"type": "tool_use", "id": "toolu_1", "name": "get_current_time", "input": {"format": "iso"}}
		],
		"usage": {"input_tokens": 1, "output_tokens": 1}
	}`}}
	thread := newTestThread(t, upstream, llm.Request{UserText: "what time is it"})

	turn, err := thread.Send(t.Context())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(turn.ToolCalls) != 1 {
		t.Fatalf("expected tool call, got %#v", turn.ToolCalls)
	}
	call := turn.ToolCalls[0]
	if call.ID != "toolu_1" || call.Name != "get_current_time" || call.Arguments["format"] != "iso" {
		t.Fatalf("unexpected call: %#v", call)
	}
}

func TestSendRendersCitations(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{`{
		"content": [
			{"type": "server_tool_use", "id": "srv_1", "name": "web_search", "input": {"query": "news"}},
			{"type": "web_search_tool_result", "tool_use_id": "srv_1", "content": ""},
			{"type": "text", "text": "The answer is 42.", "citations": [
				{"type": "web_search_result_location", "url": "https://a.example", "title": "A", "cited_text": "42"}
			]}
		],
		"usage": {"input_tokens": 1, "output_tokens": 1}
	}`}}
	thread := newTestThread(t, upstream, llm.Request{UserText: "search something"})

	turn, err := thread.Send(t.Context())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if turn.Text != "The answer is 42.[1]" {
		t.Fatalf("unexpected text: %q", turn.Text)
	}
	if len(turn.Citations) != 1 || turn.Citations[0].URL != "https://a.example" {
		t.Fatalf("unexpected citations: %#v", turn.Citations)
	}
	if len(turn.ServerCalls) != 1 || turn.ServerCalls[0].Name != "web_search" {
		t.Fatalf("expected server call recorded, got %#v", turn.ServerCalls)
	}
}

func TestSendFallbackWhenOnlyServerBlocks(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{`{
		"content": [
			{"type": "server_tool_use", "id": "srv_1", "name": "web_search", "input": {}}
		],
		"usage": {"input_tokens": 1, "output_tokens": 1}
	}`}}
	thread := newTestThread(t, upstream, llm.Request{UserText: "search"})

	turn, err := thread.Send(t.Context())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if turn.Text != "I executed a search to help answer your question." {
		t.Fatalf("unexpected fallback: %q", turn.Text)
	}
}

func TestAddToolResultsReplaysAssistantTurn(t *testing.T) {
	upstream := &fakeUpstream{responses: []string{
		`{
			"content": [{"type": "tool_use", "id": "toolu_1", "name": "get_current_time", "input": {}}],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`,
		`{
			"content": [{"type": "text", "text": "done"}],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`,
	}}
	thread := newTestThread(t, upstream, llm.Request{UserText: "go"})

	turn, err := thread.Send(t.Context())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	thread.AddToolResults([]llm.ToolOutcome{{
		CallID:  turn.ToolCalls[0].ID,
		Name:    "get_current_time",
		Success: true,
		Data:    map[string]any{"iso": "2025-01-01T00:00:00Z"},
	}})
	if _, err := thread.Send(t.Context()); err != nil {
		t.Fatalf("second send: %v", err)
	}

	second := upstream.requests[1]
	messages := second["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("expected user, assistant replay, tool results; got %d messages", len(messages))
	}
	assistant := messages[1].(map[string]any)
	if assistant["role"] != "assistant" {
		t.Fatalf("expected assistant replay, got %v", assistant["role"])
	}
	results := messages[2].(map[string]any)
	blocks := results["content"].([]any)
	block := blocks[0].(map[string]any)
	if block["type"] != "tool_result" || block["tool_use_id"] != "toolu_1" {
		t.Fatalf("unexpected tool result block: %#v", block)
	}
	if !strings.Contains(block["content"].(string), "2025-01-01") {
		t.Fatalf("result payload missing: %v", block["content"])
	}
}

func TestUserContentBlocksImages(t *testing.T) {
	blocks := userContentBlocks("look", []domain.Attachment{
		{Name: "pic.png", Mime: "image/png", Size: 3, Data: []byte{1, 2, 3}},
		{Name: "odd.tiff", Mime: "image/tiff", Size: 10},
		{Name: "doc.pdf", Mime: "application/pdf", Size: 1024},
	})
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}
	if blocks[1].Type != "image" || blocks[1].Source.MediaType != "image/png" {
		t.Fatalf("unexpected image block: %#v", blocks[1])
	}
	if !strings.Contains(blocks[2].Text, "Unsupported image format: odd.tiff") {
		t.Fatalf("unexpected unsupported-image text: %q", blocks[2].Text)
	}
	if !strings.Contains(blocks[3].Text, "File attachment: doc.pdf (application/pdf, 1 KB)") {
		t.Fatalf("unexpected attachment note: %q", blocks[3].Text)
	}
}

func TestPostErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, llm.ErrUnauthorized},
		{http.StatusForbidden, llm.ErrUnauthorized},
		{http.StatusTooManyRequests, llm.ErrRateLimited},
		{http.StatusInternalServerError, llm.ErrUnavailable},
	}
	for _, c := range cases {
		upstream := &fakeUpstream{status: c.status}
		thread := newTestThread(t, upstream, llm.Request{UserText: "hi"})
		if _, err := thread.Send(t.Context()); !errors.Is(err, c.want) {
			t.Errorf("status %d: expected %v, got %v", c.status, c.want, err)
		}
	}
}
