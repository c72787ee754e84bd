package chat

import (
	"encoding/json"
	"fmt"

	"github.com/caldew/workdesk/internal/domain"
)

const basePrompt = `You are a helpful assistant for a personal workspace application. You help users work with their documents and data: answering questions, looking things up, and summarizing what is on screen.

Guidelines:
- Use the get_current_time function when users ask about the current date or time, deadlines, or anything time-relative
- Use the fetch_url function when users ask you to read or summarize a specific web page
- When a tool fails, explain the failure briefly and suggest what the user can do instead

Web Search Capabilities:
- You have access to real-time web search for up-to-date information about companies, people, news, and other current topics
- Use web search when users ask about information not in your knowledge base (recent events, news, prices, etc.)
- Always cite sources from web search results in your responses`

// SystemPrompt builds the per-request system prompt, appending a
// summary of what the user currently sees when page context is sent.
func SystemPrompt(pageCtx *domain.PageContext) string {
	if pageCtx == nil {
		return basePrompt
	}

	filters, _ := json.MarshalIndent(pageCtx.CurrentFilters, "", "  ")
	sort, _ := json.MarshalIndent(pageCtx.CurrentSort, "", "  ")
	sample := pageCtx.VisibleData
	if len(sample) > 3 {
		sample = sample[:3]
	}
	visible, _ := json.MarshalIndent(sample, "", "  ")

	return basePrompt + fmt.Sprintf(
		"\n\n## Current Page Context:\n- Total items: %d\n- Current filters: %s\n- Current sorting: %s\n- Visible data sample: %s",
		pageCtx.TotalCount, filters, sort, visible,
	)
}
