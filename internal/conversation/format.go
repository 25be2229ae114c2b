package conversation

import (
	"encoding/json"

	"github.com/callistohq/callisto/internal/llm"
)

// persistedMessage is the on-disk shape of one turn. Content is always
// an array of persistedBlock, even for plain-text turns, which keeps
// decode and normalization uniform.
type persistedMessage struct {
	Role    string           `json:"role"`
	Content []persistedBlock `json:"content"`
}

// persistedBlock is the on-disk shape of one content block. Assistant
// tool-use blocks persist as a display-friendly "tool_call" carrying
// only the tool name and input; the protocol-level block id is not
// retained across restarts.
type persistedBlock struct {
	Type      string          `json:"type"`
	Content   string          `json:"content,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// encode converts in-memory history to its persisted form, dropping
// messages whose content is empty after formatting. Encoding already
// persisted shapes is idempotent: a load/persist cycle with no
// intervening appends rewrites the same document.
func encode(messages []llm.Message) []persistedMessage {
	out := make([]persistedMessage, 0, len(messages))
	for _, msg := range messages {
		blocks := make([]persistedBlock, 0, len(msg.Content))
		for _, b := range msg.Content {
			switch b.Kind {
			case llm.BlockText:
				if b.Text == "" {
					continue
				}
				blocks = append(blocks, persistedBlock{Type: "text", Content: b.Text})
			case llm.BlockToolUse:
				input, err := json.Marshal(b.Input)
				if err != nil {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, persistedBlock{Type: "tool_call", Tool: b.Name, Input: input})
			case llm.BlockToolResult:
				blocks = append(blocks, persistedBlock{
					Type:      "tool_result",
					ToolUseID: b.ToolUseID,
					Content:   b.Content,
					IsError:   b.IsError,
				})
			default:
				// Unknown block kinds carry no displayable payload.
			}
		}
		if len(blocks) == 0 {
			continue
		}
		out = append(out, persistedMessage{Role: msg.Role, Content: blocks})
	}
	return out
}

// decode converts persisted turns back into protocol messages. The
// display "tool_call" shape maps back to a tool-use block with an
// empty id; normalization decides whether its paired results survive.
func decode(persisted []persistedMessage) []llm.Message {
	out := make([]llm.Message, 0, len(persisted))
	for _, pm := range persisted {
		msg := llm.Message{Role: pm.Role}
		for _, b := range pm.Content {
			switch b.Type {
			case "text":
				msg.Content = append(msg.Content, llm.TextBlock(b.Content))
			case "tool_call", "tool_use":
				var input map[string]any
				if len(b.Input) > 0 {
					_ = json.Unmarshal(b.Input, &input)
				}
				msg.Content = append(msg.Content, llm.ToolUseBlock(b.ToolUseID, b.Tool, input))
			case "tool_result":
				msg.Content = append(msg.Content, llm.ToolResultBlock(b.ToolUseID, b.Content, b.IsError))
			}
		}
		out = append(out, msg)
	}
	return out
}

// normalize enforces the two load-time invariants: tool-result blocks
// must reference a tool-use id present in the immediately preceding
// assistant turn, and no message may have empty content. Orphans occur
// whenever a tool call round was persisted, since block ids are not
// retained on disk. normalize is idempotent.
func normalize(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		kept := make([]llm.ContentBlock, 0, len(msg.Content))
		for _, b := range msg.Content {
			if b.Kind == llm.BlockToolResult && !priorToolUse(out, b.ToolUseID) {
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			continue
		}
		out = append(out, llm.Message{Role: msg.Role, Content: kept})
	}
	return out
}

// priorToolUse reports whether the last message in history is an
// assistant turn containing a tool-use block with the given id.
func priorToolUse(history []llm.Message, id string) bool {
	if id == "" || len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	if last.Role != llm.RoleAssistant {
		return false
	}
	for _, b := range last.Content {
		if b.Kind == llm.BlockToolUse && b.ID == id {
			return true
		}
	}
	return false
}
