package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/callistohq/callisto/internal/llm"
	"github.com/callistohq/callisto/internal/registry"
)

// executeToolCall routes one tool invocation to its owning server and
// wraps the outcome as a tool-result block. Failures of any kind
// (unknown tool, unreachable server, schema violations, transport
// errors) come back as error-flagged results rather than Go errors, so
// the model can see and recover from them.
func (s *Session) executeToolCall(ctx context.Context, toolName string, input map[string]any, toolUseID string) llm.ContentBlock {
	serverName, ok := s.registry.ServerFor(toolName)
	if !ok {
		return llm.ToolResultBlock(toolUseID, fmt.Sprintf("Error: Tool %s not found.", toolName), true)
	}

	s.mu.Lock()
	srv, ok := s.servers[serverName]
	s.mu.Unlock()
	if !ok {
		return llm.ToolResultBlock(toolUseID, fmt.Sprintf("Error: Client for server %s not found.", serverName), true)
	}

	if missing := s.missingRequiredFields(toolName, input); len(missing) > 0 {
		return llm.ToolResultBlock(toolUseID,
			fmt.Sprintf("Error executing tool %s: missing required fields: %s", toolName, strings.Join(missing, ", ")), true)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout())
	defer cancel()

	s.logger.Debug("dispatching tool call", "tool", toolName, "server", serverName)
	result, err := srv.CallTool(callCtx, toolName, input)
	if err != nil {
		return llm.ToolResultBlock(toolUseID, fmt.Sprintf("Error executing tool %s: %v", toolName, err), true)
	}
	return llm.ToolResultBlock(toolUseID, result.Text, result.IsError)
}

// missingRequiredFields validates the input against the tool's
// canonical schema. A field counts as present when it exists and is
// not an empty string.
func (s *Session) missingRequiredFields(toolName string, input map[string]any) []string {
	schema, ok := s.registry.Schema(toolName)
	if !ok {
		return nil
	}
	var missing []string
	for _, field := range registry.RequiredFields(schema) {
		v, present := input[field]
		if !present {
			missing = append(missing, field)
			continue
		}
		if str, isStr := v.(string); isStr && str == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
