package llm

import (
	"context"
	"io"
)

// Provider adapts one upstream LLM API. Begin translates a Request into a
// Thread holding the provider-shaped message list; the orchestration loop
// drives the thread until the model stops asking for tools.
type Provider interface {
	Name() string
	Begin(req Request) (Thread, error)
}

// Thread is one in-flight conversation with a provider. Send performs a
// single API round; AddToolResults appends tool result turns so the next
// Send sees them. Threads are not safe for concurrent use.
type Thread interface {
	Send(ctx context.Context) (*Turn, error)
	AddToolResults(results []ToolOutcome)
}

// Streamer is implemented by providers that support raw token streaming.
// Streaming bypasses tool calling entirely.
type Streamer interface {
	Stream(ctx context.Context, req Request) (io.ReadCloser, error)
}
