package llm

import (
	"encoding/json"

	"github.com/caldew/workdesk/internal/domain"
)

// Tool describes a callable function in a provider-neutral shape; each
// adapter translates it into its wire format.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is one invocation requested by the model during a round.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolOutcome is the structured result fed back to the model, tagged with
// the originating call id.
type ToolOutcome struct {
	CallID  string
	Name    string
	Success bool
	Data    any
	Error   string
}

// EncodeOutcome renders a tool outcome as the content of a tool-result
// turn: the data as JSON on success, the error string otherwise.
func EncodeOutcome(o ToolOutcome) string {
	if !o.Success {
		if o.Error == "" {
			return "Unknown error"
		}
		return o.Error
	}
	data, err := json.Marshal(o.Data)
	if err != nil {
		return "Unknown error"
	}
	return string(data)
}

// Params are provider-specific generation knobs; zero values mean
// provider defaults.
type Params struct {
	Model               string
	Temperature         *float64
	TopP                *float64
	MaxCompletionTokens int
	ReasoningEffort     string
}

// Request is everything one chat turn needs: the system prompt, trailing
// history, the new user message with attachments, and the tool catalog.
type Request struct {
	System      string
	History     []domain.ChatMessage
	UserText    string
	Attachments []domain.Attachment
	Tools       []Tool
	Params      Params
}

// Turn is one provider response: final text, any tool invocations, and
// citations where the provider supports them. ServerCalls are tools the
// provider already executed on its side (web search); they are reported
// but never dispatched locally.
type Turn struct {
	Text        string
	ToolCalls   []ToolCall
	ServerCalls []domain.ToolCall
	Citations   []domain.Citation
	Usage       domain.Usage
}
