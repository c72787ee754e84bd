package domain

import (
	"github.com/shopspring/decimal"
)

// AIModel is one entry of the model catalog exposed to clients.
type AIModel struct {
	ID              string          `json:"id"`
	Provider        string          `json:"provider"`
	Name            string          `json:"name"`
	PromptPrice     decimal.Decimal `json:"prompt_price"`     // USD per 1M tokens
	CompletionPrice decimal.Decimal `json:"completion_price"` // USD per 1M tokens
	ContextLength   int             `json:"context_length"`
	Vision          bool            `json:"vision"`
}

func (m *AIModel) IsFree() bool {
	return m.PromptPrice.IsZero() && m.CompletionPrice.IsZero()
}

// Usage is the token accounting for one chat turn, summed across
// tool-calling rounds.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
	}
}

// Cost computes the USD cost of a turn against this model's pricing.
func (m *AIModel) Cost(u Usage) decimal.Decimal {
	million := decimal.NewFromInt(1_000_000)
	prompt := m.PromptPrice.Mul(decimal.NewFromInt(u.PromptTokens)).Div(million)
	completion := m.CompletionPrice.Mul(decimal.NewFromInt(u.CompletionTokens)).Div(million)
	return prompt.Add(completion)
}
