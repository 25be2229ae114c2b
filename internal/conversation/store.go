// Package conversation owns the linear message history for a session:
// seeding, appending, durable persistence, and reload-time normalization.
package conversation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/callistohq/callisto/internal/llm"
)

// Store manages one conversation history backed by a JSON file. The
// whole history is rewritten synchronously on every persist; a crash
// between mutation and persist loses only the in-memory tail since the
// last successful write.
type Store struct {
	path         string
	systemPrompt string
	logger       *slog.Logger

	messages []llm.Message
}

// NewStore creates a store for the given history file. Call Load before
// first use.
func NewStore(path, systemPrompt string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:         path,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Load reads persisted history from disk. When no file exists, the
// history is seeded with the fixed system prompt as a user-role turn
// and persisted immediately. Loaded histories are normalized: orphaned
// tool-result blocks and empty-content messages never reach the model.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.seed()
		return s.Persist()
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	var persisted []persistedMessage
	if err := json.Unmarshal(data, &persisted); err != nil {
		s.logger.Error("history file is corrupt, reseeding", "path", s.path, "error", err)
		s.seed()
		return nil
	}

	s.messages = normalize(decode(persisted))
	s.logger.Info("loaded conversation history", "messages", len(s.messages))
	return nil
}

// seed resets the in-memory history to the initial system prompt turn.
func (s *Store) seed() {
	s.messages = []llm.Message{llm.TextMessage(llm.RoleUser, s.systemPrompt)}
}

// Messages returns the current history. The slice is shared; callers
// must not mutate it.
func (s *Store) Messages() []llm.Message {
	return s.messages
}

// Len returns the number of messages in the history.
func (s *Store) Len() int {
	return len(s.messages)
}

// Append adds one turn to the history. Messages are append-only within
// a session; nothing is persisted until Persist is called.
func (s *Store) Append(msg llm.Message) {
	s.messages = append(s.messages, msg)
}

// PopDanglingAssistant removes the last message if it is an assistant
// turn. Used to unwind state after a failed model call so unmatched
// tool-use blocks do not pollute the next turn.
func (s *Store) PopDanglingAssistant() bool {
	if n := len(s.messages); n > 0 && s.messages[n-1].Role == llm.RoleAssistant {
		s.messages = s.messages[:n-1]
		return true
	}
	return false
}

// Persist writes the full history to disk, overwriting any prior file.
// Assistant tool-use blocks are formatted into a display-friendly shape
// and messages whose content is empty after formatting are dropped —
// the protocol requires every content array to be non-empty, so pruned
// turns must never reach the model on the next load.
func (s *Store) Persist() error {
	formatted := encode(s.messages)

	data, err := json.MarshalIndent(formatted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Reset discards the history, reseeds it with the system prompt, and
// persists the seeded state.
func (s *Store) Reset() error {
	s.seed()
	return s.Persist()
}
