package llm

import "context"

// Client is the model interface the orchestration loop depends on.
// Production code uses [AnthropicClient]; tests substitute doubles.
type Client interface {
	// Chat sends the conversation plus tool definitions and returns the
	// model's content blocks. The model chooses autonomously whether to
	// call a tool (tool_choice auto).
	Chat(ctx context.Context, messages []Message, system string, tools []Tool) (*Response, error)

	// Query sends a single plain-text prompt without tools. Unlike Chat,
	// transient failures are retried (3 attempts, 1s fixed backoff).
	Query(ctx context.Context, prompt string) (string, error)

	// Ping checks if the provider is reachable with the configured key.
	Ping(ctx context.Context) error
}
