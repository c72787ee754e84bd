package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/caldew/workdesk/internal/config"
	"github.com/caldew/workdesk/internal/domain"
	"github.com/caldew/workdesk/internal/llm"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 2048

	webSearchToolType = "web_search_20250305"
)

// Client implements the Anthropic Messages API with client tools, the
// server-side web_search tool, and citation extraction.
type Client struct {
	apiKey           string
	baseURL          string
	httpClient       *http.Client
	webSearchMaxUses int
}

func NewClient(apiKey string, webSearchMaxUses int) *Client {
	return &Client{
		apiKey:           apiKey,
		baseURL:          defaultBaseURL,
		httpClient:       &http.Client{Timeout: config.RequestTimeout},
		webSearchMaxUses: webSearchMaxUses,
	}
}

// NewClientWithBaseURL is used by tests to point at a fake upstream.
func NewClientWithBaseURL(apiKey, baseURL string, webSearchMaxUses int) *Client {
	c := NewClient(apiKey, webSearchMaxUses)
	c.baseURL = baseURL
	return c
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) Begin(req llm.Request) (llm.Thread, error) {
	messages := historyToMessages(req.History)
	messages = append(messages, message{
		Role:    domain.RoleUser,
		Content: userContentBlocks(req.UserText, req.Attachments),
	})

	tools := make([]map[string]any, 0, len(req.Tools)+1)
	for _, t := range req.Tools {
		tools = append(tools, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.Parameters,
		})
	}
	tools = append(tools, map[string]any{
		"type":     webSearchToolType,
		"name":     "web_search",
		"max_uses": c.webSearchMaxUses,
	})

	model := req.Params.Model
	if model == "" {
		model = config.DefaultAnthropicModel
	}
	maxTokens := req.Params.MaxCompletionTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &thread{
		client:    c,
		system:    req.System,
		model:     model,
		maxTokens: maxTokens,
		tools:     tools,
		messages:  messages,
	}, nil
}

type thread struct {
	client    *Client
	system    string
	model     string
	maxTokens int
	tools     []map[string]any
	messages  []message

	// content blocks of the last response, replayed as the assistant
	// turn once tool results are appended
	lastContent []contentBlock
}

func (t *thread) Send(ctx context.Context) (*llm.Turn, error) {
	payload := map[string]any{
		"model":      t.model,
		"max_tokens": t.maxTokens,
		"messages":   t.messages,
		"tools":      t.tools,
	}
	if t.system != "" {
		payload["system"] = t.system
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := t.client.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	t.lastContent = resp.Content

	turn := &llm.Turn{
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		},
	}
	turn.Text, turn.Citations = renderText(resp.Content)
	turn.ToolCalls = clientToolCalls(resp.Content)
	turn.ServerCalls = serverToolCalls(resp.Content)
	return turn, nil
}

func (t *thread) AddToolResults(results []llm.ToolOutcome) {
	// Replay the assistant turn (including its tool_use blocks), then
	// feed every result back as a tool_result block in one user turn.
	t.messages = append(t.messages, message{
		Role:    domain.RoleAssistant,
		Content: t.lastContent,
	})

	blocks := make([]contentBlock, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, contentBlock{
			Type:      "tool_result",
			ToolUseID: r.CallID,
			Content:   llm.EncodeOutcome(r),
		})
	}
	t.messages = append(t.messages, message{
		Role:    domain.RoleUser,
		Content: blocks,
	})
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, llm.ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, llm.ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, llm.ErrUnavailable
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anthropic error: %s - %s", resp.Status, string(errBody))
	}
	return io.ReadAll(resp.Body)
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	Source    *imageSource    `json:"source,omitempty"`
	Citations []citationEntry `json:"citations,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type citationEntry struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	CitedText string `json:"cited_text"`
}

type response struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func historyToMessages(history []domain.ChatMessage) []message {
	messages := make([]message, 0, len(history))
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		messages = append(messages, message{
			Role:    m.Role,
			Content: []contentBlock{{Type: "text", Text: m.Content}},
		})
	}
	return messages
}

func userContentBlocks(text string, attachments []domain.Attachment) []contentBlock {
	blocks := []contentBlock{{Type: "text", Text: text}}
	for _, a := range attachments {
		if !a.IsImage() {
			blocks = append(blocks, contentBlock{Type: "text", Text: llm.AttachmentNote(a)})
			continue
		}
		mediaType, ok := supportedMediaType(a.Mime)
		if !ok {
			blocks = append(blocks, contentBlock{
				Type: "text",
				Text: fmt.Sprintf("\n\nUnsupported image format: %s (%s, %s)", a.Name, a.Mime, llm.FormatFileSize(a.Size)),
			})
			continue
		}
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      base64.StdEncoding.EncodeToString(a.Data),
			},
		})
	}
	return blocks
}

func supportedMediaType(mime string) (string, bool) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "image/jpeg", true
	case "image/png", "image/gif", "image/webp":
		return mime, true
	}
	return "", false
}

// renderText joins text blocks, appending [n] markers to blocks that
// carry web search citations and collecting the citations in order.
func renderText(content []contentBlock) (string, []domain.Citation) {
	var buf bytes.Buffer
	var citations []domain.Citation
	counter := 1
	sawText := false

	for _, block := range content {
		if block.Type != "text" {
			continue
		}
		sawText = true
		buf.WriteString(block.Text)

		var markers []int
		for _, c := range block.Citations {
			if c.Type != "web_search_result_location" {
				continue
			}
			citations = append(citations, domain.Citation{
				URL:       c.URL,
				Title:     c.Title,
				CitedText: c.CitedText,
			})
			markers = append(markers, counter)
			counter++
		}
		for _, n := range markers {
			fmt.Fprintf(&buf, "[%d]", n)
		}
	}

	if !sawText {
		for _, block := range content {
			if block.Type == "server_tool_use" || block.Type == "web_search_tool_result" {
				return "I executed a search to help answer your question.", citations
			}
		}
	}
	return buf.String(), citations
}

func clientToolCalls(content []contentBlock) []llm.ToolCall {
	var calls []llm.ToolCall
	for _, block := range content {
		if block.Type != "tool_use" {
			continue
		}
		calls = append(calls, llm.ToolCall{
			ID:        block.ID,
			Name:      block.Name,
			Arguments: block.Input,
		})
	}
	return calls
}

// serverToolCalls records web searches the provider ran on its side;
// they are reported to the caller but never dispatched locally.
func serverToolCalls(content []contentBlock) []domain.ToolCall {
	var calls []domain.ToolCall
	for _, block := range content {
		if block.Type != "server_tool_use" || block.Name != "web_search" {
			continue
		}
		call := domain.ToolCall{
			ID:        block.ID,
			Name:      block.Name,
			Arguments: block.Input,
		}
		for _, result := range content {
			if result.Type == "web_search_tool_result" && result.ToolUseID == block.ID {
				call.Result = &domain.ToolResult{Success: true, Data: result.Content}
				break
			}
		}
		calls = append(calls, call)
	}
	return calls
}
