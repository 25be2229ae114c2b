// Package registry maintains the session's tool catalog: the canonical
// input schema for every discovered tool and the tool→server routing map.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/callistohq/callisto/internal/llm"
	"github.com/callistohq/callisto/internal/mcp"
)

// Discoverer lists tools from one connected server. *mcp.Client
// satisfies this; tests substitute doubles.
type Discoverer interface {
	ListTools(ctx context.Context) ([]mcp.ToolDefinition, error)
}

// Registry holds the tools advertised by all connected servers and maps
// each tool name to its owning server. Servers are discovered
// concurrently at connection time, so all catalog access is guarded.
type Registry struct {
	logger *slog.Logger

	mu           sync.RWMutex
	tools        []llm.Tool
	toolToServer map[string]string
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:       logger,
		toolToServer: make(map[string]string),
	}
}

// DiscoverTools lists the server's tools, normalizes each input schema,
// and registers the tool→server ownership. Tool names are global: a
// name already registered by another server is overwritten (last
// registration wins) with a diagnostic, since some server sets ship
// overlapping tool names intentionally.
func (r *Registry) DiscoverTools(ctx context.Context, serverName string, d Discoverer) ([]llm.Tool, error) {
	defs, err := d.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools from %s: %w", serverName, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	discovered := make([]llm.Tool, 0, len(defs))
	for _, def := range defs {
		tool := llm.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: NormalizeSchema(serverName, def.Name, def.InputSchema),
		}

		if prev, exists := r.toolToServer[def.Name]; exists {
			if prev != serverName {
				r.logger.Warn("tool name collision, last registration wins",
					"tool", def.Name,
					"previous_server", prev,
					"server", serverName,
				)
			}
			r.replace(tool)
		} else {
			r.tools = append(r.tools, tool)
		}
		r.toolToServer[def.Name] = serverName

		discovered = append(discovered, tool)

		r.logger.Debug("registered tool",
			"tool", def.Name,
			"server", serverName,
			"required", tool.InputSchema["required"],
		)
	}

	return discovered, nil
}

// replace swaps the catalog entry with the given tool's name. Caller
// must hold r.mu.
func (r *Registry) replace(tool llm.Tool) {
	for i := range r.tools {
		if r.tools[i].Name == tool.Name {
			r.tools[i] = tool
			return
		}
	}
	r.tools = append(r.tools, tool)
}

// Tools returns all registered tools in registration order, for the model.
func (r *Registry) Tools() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// ServerFor returns the owning server for a tool name.
func (r *Registry) ServerFor(toolName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.toolToServer[toolName]
	return s, ok
}

// Schema returns the canonical input schema for a registered tool.
func (r *Registry) Schema(toolName string) (map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tools {
		if t.Name == toolName {
			return t.InputSchema, true
		}
	}
	return nil, false
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
