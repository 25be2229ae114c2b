package conversation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/callistohq/callisto/internal/llm"
)

const testPrompt = "You are a test assistant."

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	return NewStore(path, testPrompt, nil)
}

func TestLoadSeedsMissingFile(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 seeded message, got %d", s.Len())
	}
	msg := s.Messages()[0]
	if msg.Role != llm.RoleUser || msg.Text() != testPrompt {
		t.Errorf("unexpected seed message: %+v", msg)
	}
	if _, err := os.Stat(s.path); err != nil {
		t.Errorf("seeded history was not persisted: %v", err)
	}
}

func TestLoadCorruptFileReseeds(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected reseeded history, got %d messages", s.Len())
	}
}

func TestPersistFormatsAssistantToolUse(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.Append(llm.TextMessage(llm.RoleUser, "send a note"))
	s.Append(llm.Message{Role: llm.RoleAssistant, Content: []llm.ContentBlock{
		llm.TextBlock("On it."),
		llm.ToolUseBlock("toolu_1", "send_email", map[string]any{"to": "a@b.c"}),
	}})
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	var persisted []persistedMessage
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("persisted file is not valid JSON: %v", err)
	}
	if len(persisted) != 3 {
		t.Fatalf("expected 3 persisted messages, got %d", len(persisted))
	}
	last := persisted[2]
	if len(last.Content) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(last.Content))
	}
	if last.Content[0].Type != "text" || last.Content[0].Content != "On it." {
		t.Errorf("unexpected text block: %+v", last.Content[0])
	}
	if last.Content[1].Type != "tool_call" || last.Content[1].Tool != "send_email" {
		t.Errorf("tool use was not formatted as tool_call: %+v", last.Content[1])
	}
	if last.Content[1].ToolUseID != "" {
		t.Errorf("block id should not be persisted, got %q", last.Content[1].ToolUseID)
	}
}

func TestPersistDropsEmptyMessages(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.Append(llm.Message{Role: llm.RoleAssistant, Content: []llm.ContentBlock{llm.TextBlock("")}})
	s.Append(llm.TextMessage(llm.RoleUser, "still here"))
	if err := s.Persist(); err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(s.path, testPrompt, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected empty message to be pruned, got %d messages", reloaded.Len())
	}
	if reloaded.Messages()[1].Text() != "still here" {
		t.Errorf("unexpected surviving message: %+v", reloaded.Messages()[1])
	}
}

func TestLoadPrunesOrphanedToolResults(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.Append(llm.Message{Role: llm.RoleAssistant, Content: []llm.ContentBlock{
		llm.ToolUseBlock("toolu_9", "web_search", map[string]any{"query": "x"}),
	}})
	s.Append(llm.Message{Role: llm.RoleUser, Content: []llm.ContentBlock{
		llm.ToolResultBlock("toolu_9", "results", false),
	}})
	if err := s.Persist(); err != nil {
		t.Fatal(err)
	}

	// Block ids are not retained on disk, so the reloaded result no
	// longer matches a tool use and must be dropped entirely.
	reloaded := NewStore(s.path, testPrompt, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	for _, msg := range reloaded.Messages() {
		for _, b := range msg.Content {
			if b.Kind == llm.BlockToolResult {
				t.Fatalf("orphaned tool result survived reload: %+v", b)
			}
		}
		if len(msg.Content) == 0 {
			t.Fatal("empty message survived reload")
		}
	}
}

func TestPersistLoadCycleIsStable(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.Append(llm.TextMessage(llm.RoleUser, "hello"))
	s.Append(llm.Message{Role: llm.RoleAssistant, Content: []llm.ContentBlock{
		llm.TextBlock("hi"),
		llm.ToolUseBlock("toolu_1", "search_emails", map[string]any{"query": "q"}),
	}})
	if err := s.Persist(); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(s.path, testPrompt, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if err := reloaded.Persist(); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("load/persist cycle rewrote the file:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestPopDanglingAssistant(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.Append(llm.TextMessage(llm.RoleUser, "q"))
	if s.PopDanglingAssistant() {
		t.Error("popped a user message")
	}
	s.Append(llm.Message{Role: llm.RoleAssistant, Content: []llm.ContentBlock{
		llm.ToolUseBlock("toolu_2", "list_emails", nil),
	}})
	if !s.PopDanglingAssistant() {
		t.Fatal("expected assistant message to be popped")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 messages after pop, got %d", s.Len())
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.Append(llm.TextMessage(llm.RoleUser, "forget this"))
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected reseeded history, got %d messages", s.Len())
	}

	reloaded := NewStore(s.path, testPrompt, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 1 {
		t.Errorf("reset was not persisted: %d messages on disk", reloaded.Len())
	}
}
