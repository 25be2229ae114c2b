package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
)

// roundTripFunc serves canned responses without a network listener.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(rt roundTripFunc) *AnthropicClient {
	c := NewAnthropicClient("sk-test", "claude-3-haiku-20240307", 100,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.httpClient = &http.Client{Transport: rt}
	return c
}

func TestChatSuccess(t *testing.T) {
	var captured anthropicRequest
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("x-api-key") != "sk-test" {
			t.Errorf("missing api key header")
		}
		if req.Header.Get("anthropic-version") == "" {
			t.Errorf("missing version header")
		}
		if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		return jsonResponse(200, `{
			"model": "claude-3-haiku-20240307",
			"content": [{"type":"text","text":"hi there"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`), nil
	})

	tools := []Tool{{Name: "send_email", InputSchema: map[string]any{"type": "object"}}}
	resp, err := c.Chat(context.Background(), []Message{TextMessage(RoleUser, "hello")}, "system", tools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Text() != "hi there" {
		t.Errorf("Text() = %q", resp.Text())
	}
	if resp.Usage.InputTokens != 10 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if captured.ToolChoice == nil || captured.ToolChoice.Type != "auto" {
		t.Errorf("tool_choice = %+v, want auto", captured.ToolChoice)
	}
}

func TestChatNoToolsOmitsToolChoice(t *testing.T) {
	var captured anthropicRequest
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		json.NewDecoder(req.Body).Decode(&captured)
		return jsonResponse(200, `{"content":[{"type":"text","text":"ok"}]}`), nil
	})

	if _, err := c.Chat(context.Background(), []Message{TextMessage(RoleUser, "x")}, "", nil); err != nil {
		t.Fatal(err)
	}
	if captured.ToolChoice != nil {
		t.Errorf("tool_choice should be omitted without tools, got %+v", captured.ToolChoice)
	}
}

func TestChatUnauthorized(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"error":{"type":"authentication_error"}}`), nil
	})

	_, err := c.Chat(context.Background(), []Message{TextMessage(RoleUser, "x")}, "", nil)
	if err == nil || !strings.Contains(err.Error(), "invalid API key") {
		t.Errorf("err = %v, want invalid API key", err)
	}
}

func TestChatAPIErrorIncludesBody(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"error":{"type":"rate_limit_error"}}`), nil
	})

	_, err := c.Chat(context.Background(), []Message{TextMessage(RoleUser, "x")}, "", nil)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want status in message", err)
	}
}

func TestQueryRetriesThenSucceeds(t *testing.T) {
	calls := 0
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return jsonResponse(500, `{"error":{"type":"api_error"}}`), nil
		}
		return jsonResponse(200, `{"content":[{"type":"text","text":"third time"}]}`), nil
	})

	got, err := c.Query(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got != "third time" {
		t.Errorf("Query = %q", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestQueryExhaustsRetries(t *testing.T) {
	calls := 0
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(500, `{"error":{}}`), nil
	})

	_, err := c.Query(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v", err)
	}
	if calls != queryAttempts {
		t.Errorf("calls = %d, want %d", calls, queryAttempts)
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		var body anthropicRequest
		json.NewDecoder(req.Body).Decode(&body)
		if body.MaxTokens != 1 {
			t.Errorf("ping max_tokens = %d, want 1", body.MaxTokens)
		}
		return jsonResponse(200, `{"content":[{"type":"text","text":"pong"}]}`), nil
	})

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
