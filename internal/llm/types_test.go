package llm

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUnmarshalTextBlock(t *testing.T) {
	var b ContentBlock
	if err := json.Unmarshal([]byte(`{"type":"text","text":"hello"}`), &b); err != nil {
		t.Fatal(err)
	}
	if b.Kind != BlockText || b.Text != "hello" {
		t.Errorf("got %+v", b)
	}
}

func TestUnmarshalToolUseBlock(t *testing.T) {
	var b ContentBlock
	data := `{"type":"tool_use","id":"toolu_1","name":"send_email","input":{"to":"a@b.c"}}`
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		t.Fatal(err)
	}
	if b.Kind != BlockToolUse || b.ID != "toolu_1" || b.Name != "send_email" {
		t.Errorf("got %+v", b)
	}
	if b.Input["to"] != "a@b.c" {
		t.Errorf("input = %v", b.Input)
	}
}

func TestUnmarshalToolResultStringContent(t *testing.T) {
	var b ContentBlock
	data := `{"type":"tool_result","tool_use_id":"toolu_1","content":"ok","is_error":false}`
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		t.Fatal(err)
	}
	if b.Kind != BlockToolResult || b.ToolUseID != "toolu_1" || b.Content != "ok" {
		t.Errorf("got %+v", b)
	}
}

func TestUnmarshalToolResultStructuredContent(t *testing.T) {
	var b ContentBlock
	data := `{"type":"tool_result","tool_use_id":"toolu_1","content":[{"type":"text","text":"x"}]}`
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.Content, `"text":"x"`) {
		t.Errorf("structured content not preserved: %q", b.Content)
	}
}

func TestUnknownBlockRoundTrips(t *testing.T) {
	raw := `{"type":"thinking","thinking":"hmm","signature":"sig"}`
	var b ContentBlock
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatal(err)
	}
	if b.Kind != BlockUnknown {
		t.Fatalf("Kind = %q, want unknown", b.Kind)
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != raw {
		t.Errorf("re-emitted payload = %s, want %s", out, raw)
	}
}

func TestMarshalToolUseNilInput(t *testing.T) {
	out, err := json.Marshal(ToolUseBlock("id-1", "list-events", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"input":{}`) {
		t.Errorf("nil input should encode as empty object: %s", out)
	}
}

func TestMessageTextConcatenates(t *testing.T) {
	m := Message{Role: RoleAssistant, Content: []ContentBlock{
		TextBlock("a"),
		ToolUseBlock("id", "tool", nil),
		TextBlock("b"),
	}}
	if m.Text() != "ab" {
		t.Errorf("Text() = %q", m.Text())
	}
	if !m.HasToolUse() {
		t.Error("HasToolUse() = false")
	}
}
