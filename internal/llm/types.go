// Package llm provides the Anthropic Messages API client and the
// content-block model shared by the conversation and session packages.
package llm

import (
	"encoding/json"
	"fmt"
)

// Message roles. The Messages API only accepts user and assistant turns;
// the system prompt travels out-of-band.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BlockKind identifies a content block variant.
type BlockKind string

// The closed set of content block variants. Anything the API returns
// with an unrecognized type tag decodes as BlockUnknown with the raw
// payload preserved, rather than being silently dropped.
const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
	BlockUnknown    BlockKind = "unknown"
)

// ContentBlock is one item in a message's content sequence. Exactly the
// fields for its Kind are meaningful; the rest are zero.
type ContentBlock struct {
	Kind BlockKind

	// BlockText
	Text string

	// BlockToolUse
	ID    string
	Name  string
	Input map[string]any

	// BlockToolResult
	ToolUseID string
	Content   string
	IsError   bool

	// BlockUnknown: the original JSON payload, round-tripped untouched.
	Raw json.RawMessage
}

// TextBlock constructs a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// ToolUseBlock constructs a tool_use content block.
func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Kind: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock constructs a tool_result content block.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Kind: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// wire mirrors the Anthropic content block encoding for both directions.
type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     map[string]any  `json:"input,omitzero"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// MarshalJSON encodes the block in Anthropic wire format. Unknown blocks
// re-emit their captured raw payload.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case BlockText:
		return json.Marshal(wireBlock{Type: "text", Text: b.Text})
	case BlockToolUse:
		input := b.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(wireBlock{Type: "tool_use", ID: b.ID, Name: b.Name, Input: input})
	case BlockToolResult:
		content, err := json.Marshal(b.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireBlock{Type: "tool_result", ToolUseID: b.ToolUseID, Content: content, IsError: b.IsError})
	case BlockUnknown:
		if len(b.Raw) > 0 {
			return b.Raw, nil
		}
		return []byte(`{"type":"unknown"}`), nil
	default:
		return nil, fmt.Errorf("unsupported content block kind %q", b.Kind)
	}
}

// UnmarshalJSON decodes an Anthropic wire block. Unrecognized type tags
// become a decodable Unknown variant carrying the raw payload.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Type {
	case "text":
		*b = ContentBlock{Kind: BlockText, Text: w.Text}
	case "tool_use":
		*b = ContentBlock{Kind: BlockToolUse, ID: w.ID, Name: w.Name, Input: w.Input}
	case "tool_result":
		*b = ContentBlock{
			Kind:      BlockToolResult,
			ToolUseID: w.ToolUseID,
			Content:   decodeResultContent(w.Content),
			IsError:   w.IsError,
		}
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		*b = ContentBlock{Kind: BlockUnknown, Raw: raw}
	}
	return nil
}

// decodeResultContent accepts either a JSON string or structured content
// and returns it as a plain string, matching the tool invocation wire
// contract (structured data is serialized for the model).
func decodeResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Message is one conversation turn: a role and an ordered content
// sequence. Plain-text turns are a single text block.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage constructs a single-text-block message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{TextBlock(text)}}
}

// Text concatenates the message's text blocks.
func (m Message) Text() string {
	var out string
	for _, b := range m.Content {
		if b.Kind == BlockText {
			out += b.Text
		}
	}
	return out
}

// HasToolUse reports whether any content block is a tool_use.
func (m Message) HasToolUse() bool {
	for _, b := range m.Content {
		if b.Kind == BlockToolUse {
			return true
		}
	}
	return false
}

// Tool is a callable tool definition advertised to the model.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// Usage is provider-reported token accounting.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the model's reply to a Chat call.
type Response struct {
	Model      string
	Content    []ContentBlock
	StopReason string
	Usage      Usage
}

// Text concatenates the response's text blocks.
func (r *Response) Text() string {
	var out string
	for _, b := range r.Content {
		if b.Kind == BlockText {
			out += b.Text
		}
	}
	return out
}
