// Package session wires the connected tool servers, the tool registry,
// the conversation history, and the model client into one interactive
// agent: routing user input, running the tool-use loop, and gating
// outbound messages behind explicit confirmation.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/callistohq/callisto/internal/config"
	"github.com/callistohq/callisto/internal/conversation"
	"github.com/callistohq/callisto/internal/entities"
	"github.com/callistohq/callisto/internal/llm"
	"github.com/callistohq/callisto/internal/mcp"
	"github.com/callistohq/callisto/internal/prompts"
	"github.com/callistohq/callisto/internal/registry"
)

// ToolServer is the session's view of one connected tool server.
// *mcp.Client satisfies this; tests substitute doubles.
type ToolServer interface {
	Initialize(ctx context.Context) error
	ListTools(ctx context.Context) ([]mcp.ToolDefinition, error)
	CallTool(ctx context.Context, name string, args map[string]any) (mcp.Result, error)
	Close() error
}

// Session owns the full conversational state for one running agent.
// ProcessQuery serializes access internally, so transcript ingest and
// interactive input may feed the same session concurrently.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger

	model    llm.Client
	registry *registry.Registry
	history  *conversation.Store
	meeting  *MeetingContext

	// Notify delivers out-of-band output produced while processing
	// transcript chunks, such as staged-message previews. Nil routes
	// to the log.
	Notify func(msg string)

	// procMu serializes ProcessQuery; mu guards the server and
	// pending-action maps, which Cleanup and status accessors touch
	// from other goroutines.
	procMu  sync.Mutex
	mu      sync.Mutex
	servers map[string]ToolServer
	pending []*PendingAction
}

// notify delivers a message through the configured channel.
func (s *Session) notify(msg string) {
	if s.Notify != nil {
		s.Notify(msg)
		return
	}
	s.logger.Info("pending action staged", "preview", msg)
}

// New creates a session with no connected servers. Call Connect before
// processing queries.
func New(cfg *config.Config, model llm.Client, store *entities.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:      cfg,
		logger:   logger,
		model:    model,
		registry: registry.New(logger),
		history:  conversation.NewStore(cfg.HistoryFile(), prompts.System, logger),
		meeting:  NewMeetingContext(store, logger),
		servers:  make(map[string]ToolServer),
	}
}

// History exposes the conversation store, mainly for the CLI's clear
// command and for shutdown persistence.
func (s *Session) History() *conversation.Store {
	return s.history
}

// Meeting exposes the accumulated meeting context.
func (s *Session) Meeting() *MeetingContext {
	return s.meeting
}

// ConnectedServers returns the names of successfully connected servers.
func (s *Session) ConnectedServers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.servers))
	for name := range s.servers {
		names = append(names, name)
	}
	return names
}

// ToolCount returns the number of registered tools.
func (s *Session) ToolCount() int {
	return s.registry.Len()
}

// HasPendingAction reports whether an action is staged awaiting
// confirmation.
func (s *Session) HasPendingAction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Cleanup closes every connected server and resets the history to its
// seeded state. Each close failure is logged and does not stop the others.
func (s *Session) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, srv := range s.servers {
		if err := srv.Close(); err != nil {
			s.logger.Error("failed to close server", "server", name, "error", err)
		}
	}
	s.servers = make(map[string]ToolServer)

	if err := s.history.Reset(); err != nil {
		s.logger.Error("failed to reset history on shutdown", "error", err)
	}
}
