package domain

import (
	"time"
)

// Role values for chat messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type ChatSession struct {
	ID        string
	UserID    string
	Title     string
	Messages  []ChatMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ChatMessage struct {
	ID          string
	Role        string
	Content     string
	Attachments []Attachment
	ToolCalls   []ToolCall
	Citations   []Citation
	CreatedAt   time.Time
}

// Attachment is a file attached to a user message. Data holds the raw
// bytes for image attachments; non-image attachments carry metadata only.
type Attachment struct {
	Name string
	Mime string
	Size int64
	Data []byte
}

func (a Attachment) IsImage() bool {
	return len(a.Mime) > 6 && a.Mime[:6] == "image/"
}

// ToolCall records one tool invocation requested by the model, completed
// synchronously within the same chat turn.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    *ToolResult    `json:"result,omitempty"`
}

type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Citation struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	CitedText string `json:"cited_text"`
}

// PageContext summarizes what the user currently sees; it is injected
// into the system prompt verbatim.
type PageContext struct {
	CurrentFilters map[string]any   `json:"currentFilters"`
	CurrentSort    map[string]any   `json:"currentSort"`
	VisibleData    []map[string]any `json:"visibleData"`
	TotalCount     int              `json:"totalCount"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"lastMessage"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SessionTitle derives a session title from its first user message,
// truncated to 30 characters.
func SessionTitle(messages []ChatMessage) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) > 30 {
			return string(runes[:30]) + "..."
		}
		return m.Content
	}
	return "New Chat"
}
