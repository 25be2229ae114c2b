package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/callistohq/callisto/internal/llm"
	"github.com/callistohq/callisto/internal/prompts"
)

// maxToolLoops bounds the model/tool round-trips for one user turn.
const maxToolLoops = 10

// ProcessQuery is the single entry point for user input. It routes
// confirmation vocabulary and transcript chunks before anything reaches
// the model; everything else runs through the tool-use loop. Calls are
// serialized so interactive input and transcript ingest can share one
// session.
func (s *Session) ProcessQuery(ctx context.Context, query string) string {
	s.procMu.Lock()
	defer s.procMu.Unlock()

	if strings.TrimSpace(query) == "" {
		return "Please provide a query."
	}

	switch strings.ToLower(strings.TrimSpace(query)) {
	case "y", "yes":
		return s.confirmPending(ctx)
	case "n", "no":
		return s.rejectPending()
	}

	if speaker, content, ok := splitTranscript(query); ok {
		s.processTranscriptChunk(ctx, speaker, content)
		return "Transcript chunk processed."
	}

	return s.runLoop(ctx, query)
}

// splitTranscript recognizes meeting transcript chunks, which arrive
// prefixed with their source channel.
func splitTranscript(query string) (speaker, content string, ok bool) {
	for _, prefix := range []string{"SCREEN:", "MIC:"} {
		if strings.HasPrefix(query, prefix) {
			return strings.TrimSuffix(prefix, ":"), strings.TrimSpace(strings.TrimPrefix(query, prefix)), true
		}
	}
	return "", "", false
}

// runLoop appends the user turn and drives the model/tool loop until
// the model stops requesting tools, a confirmation-gated tool is
// staged, or the iteration ceiling is hit.
func (s *Session) runLoop(ctx context.Context, query string) string {
	s.history.Append(llm.TextMessage(llm.RoleUser, query))

	var responseText strings.Builder

	for loop := 0; loop < maxToolLoops; loop++ {
		resp, err := s.model.Chat(ctx, s.history.Messages(), prompts.System, s.registry.Tools())
		if err != nil {
			// Drop any assistant turn left without matching tool
			// results so the next request is well-formed.
			s.history.PopDanglingAssistant()
			s.logger.Error("model request failed", "error", err)
			return fmt.Sprintf("Error: %v", err)
		}

		hasToolUse := false
		var toolResults []llm.ContentBlock

		for _, block := range resp.Content {
			switch block.Kind {
			case llm.BlockText:
				responseText.WriteString(block.Text)
			case llm.BlockToolUse:
				hasToolUse = true
				if requiresConfirmation(block.Name) {
					// Staged, not executed. The model turn is not
					// recorded; confirmation restarts from dispatch.
					return s.stageAction(block.Name, block.Input)
				}
				result := s.executeToolCall(ctx, block.Name, block.Input, block.ID)
				toolResults = append(toolResults, result)
				responseText.WriteString(result.Content)
			}
		}

		if len(resp.Content) > 0 {
			s.history.Append(llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
		}

		if !hasToolUse {
			s.persist()
			if responseText.Len() == 0 {
				return prompts.EmptyResponseFallback
			}
			return responseText.String()
		}

		if len(toolResults) > 0 {
			s.history.Append(llm.Message{Role: llm.RoleUser, Content: toolResults})
		}
		s.persist()
	}

	return responseText.String() + "\n" + prompts.MaxToolLoopsNotice
}

func (s *Session) persist() {
	if err := s.history.Persist(); err != nil {
		s.logger.Error("failed to persist history", "error", err)
	}
}
