package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/callistohq/callisto/internal/config"
	"github.com/callistohq/callisto/internal/httpkit"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// Direct-query retry policy. This applies only to Query — the
// tool-orchestration loop never retries model calls itself.
const (
	queryAttempts = 3
	queryBackoff  = 1 * time.Second
)

// AnthropicClient is a client for the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAnthropicClient creates a new Anthropic client. Model and maxTokens
// fall back to the haiku defaults when zero-valued.
func NewAnthropicClient(apiKey, model string, maxTokens int, logger *slog.Logger) *AnthropicClient {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = "claude-3-haiku-20240307"
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	// Model responses can take significant time before headers arrive
	// (long prompts, many tools). Use a generous response header timeout;
	// overall deadlines come from the caller's context.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &AnthropicClient{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.With("provider", "anthropic"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

// Anthropic request/response wire types.

type anthropicRequest struct {
	Model      string      `json:"model"`
	Messages   []Message   `json:"messages"`
	System     string      `json:"system,omitempty"`
	MaxTokens  int         `json:"max_tokens"`
	Tools      []Tool      `json:"tools,omitempty"`
	ToolChoice *toolChoice `json:"tool_choice,omitempty"`
}

type toolChoice struct {
	Type string `json:"type"`
}

type anthropicResponse struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Chat sends one Messages API request with the full conversation, the
// system prompt, and the registered tool list. Tool selection is left to
// the model (tool_choice auto). Chat does not retry.
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, system string, tools []Tool) (*Response, error) {
	req := anthropicRequest{
		Model:     c.model,
		Messages:  messages,
		System:    system,
		MaxTokens: c.maxTokens,
		Tools:     tools,
	}
	if len(tools) > 0 {
		req.ToolChoice = &toolChoice{Type: "auto"}
	}

	c.logger.Debug("preparing request",
		"model", c.model,
		"messages", len(messages),
		"tools", len(tools),
		"system_len", len(system),
	)

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Response{
		Model:      resp.Model,
		Content:    resp.Content,
		StopReason: resp.StopReason,
		Usage:      resp.Usage,
	}

	c.logger.Debug("response received",
		"model", result.Model,
		"stop_reason", result.StopReason,
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"blocks", len(result.Content),
	)
	c.logger.Log(ctx, config.LevelTrace, "response text", "content", result.Text())

	return result, nil
}

// Query sends a single plain-text prompt without tools and returns the
// text reply. Transient failures are retried with a fixed backoff;
// this is the sibling path for simple non-tool-routed prompts.
func (c *AnthropicClient) Query(ctx context.Context, prompt string) (string, error) {
	req := anthropicRequest{
		Model:     c.model,
		Messages:  []Message{TextMessage(RoleUser, prompt)},
		MaxTokens: c.maxTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= queryAttempts; attempt++ {
		resp, err := c.send(ctx, req)
		if err == nil {
			return blocksText(resp.Content), nil
		}
		lastErr = err

		if attempt < queryAttempts {
			c.logger.Warn("query attempt failed, retrying",
				"attempt", attempt,
				"max_attempts", queryAttempts,
				"error", err,
			)
			timer := time.NewTimer(queryBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}
	}

	return "", fmt.Errorf("query failed after %d attempts: %w", queryAttempts, lastErr)
}

// Ping checks if the Anthropic API is reachable. There is no dedicated
// health endpoint, so a minimal request verifies the API key works.
func (c *AnthropicClient) Ping(ctx context.Context) error {
	req := anthropicRequest{
		Model:     c.model,
		Messages:  []Message{TextMessage(RoleUser, "ping")},
		MaxTokens: 1,
	}

	if _, err := c.send(ctx, req); err != nil {
		return err
	}
	return nil
}

// send performs one Messages API round trip.
func (c *AnthropicClient) send(ctx context.Context, req anthropicRequest) (*anthropicResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, config.LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized {
		httpkit.DrainAndClose(httpResp.Body, 4096)
		return nil, fmt.Errorf("invalid API key")
	}
	if httpResp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(httpResp.Body, 4096)
		c.logger.Error("API error", "status", httpResp.StatusCode, "body", errBody)
		return nil, fmt.Errorf("anthropic API error %d: %s", httpResp.StatusCode, errBody)
	}

	var resp anthropicResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &resp, nil
}

// blocksText concatenates text blocks from a content sequence.
func blocksText(blocks []ContentBlock) string {
	var out string
	for _, b := range blocks {
		if b.Kind == BlockText {
			out += b.Text
		}
	}
	return out
}
