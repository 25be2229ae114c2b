package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/callistohq/callisto/internal/llm"
	"github.com/callistohq/callisto/internal/prompts"
)

// WorkflowType classifies what a transcript-triggered tool call is for.
type WorkflowType string

const (
	WorkflowSearch   WorkflowType = "search"
	WorkflowEmail    WorkflowType = "email"
	WorkflowCalendar WorkflowType = "calendar"
	WorkflowSlack    WorkflowType = "slack"
)

// Workflow is one tool call identified from a transcript chunk.
// Approval-gated workflows go through the same pending queue as
// interactive sends.
type Workflow struct {
	ID               string
	Type             WorkflowType
	ToolName         string
	Input            map[string]any
	RequiresApproval bool
}

// calendarKeywords trigger the availability fast path: a scheduling
// mention in the transcript checks the calendar without a model
// round-trip.
var calendarKeywords = []string{
	"availability", "schedule", "meeting", "call", "appointment", "free", "busy",
}

// processTranscriptChunk folds one transcript chunk into the
// conversation and acts on any workflows it implies. Read-only
// workflows execute immediately; outbound ones are staged for
// confirmation.
func (s *Session) processTranscriptChunk(ctx context.Context, speaker, content string) {
	s.logger.Debug("transcript chunk received", "speaker", speaker, "chars", len(content))
	s.history.Append(llm.TextMessage(llm.RoleUser, content))

	for _, wf := range s.identifyWorkflows(ctx, content) {
		if wf.RequiresApproval {
			s.notify(s.stageAction(wf.ToolName, wf.Input))
			continue
		}
		s.executeWorkflow(ctx, wf)
	}
	s.persist()
}

// identifyWorkflows decides which tool calls a transcript chunk calls
// for. Scheduling mentions short-circuit to a calendar availability
// check; anything else asks the model.
func (s *Session) identifyWorkflows(ctx context.Context, content string) []Workflow {
	// A prior chunk may have left an assistant turn with no matching
	// tool results; drop it before the next model call.
	s.history.PopDanglingAssistant()

	lower := strings.ToLower(content)
	for _, kw := range calendarKeywords {
		if strings.Contains(lower, kw) {
			return []Workflow{s.calendarFastPath()}
		}
	}

	resp, err := s.model.Chat(ctx, s.history.Messages(), prompts.System, s.registry.Tools())
	if err != nil {
		s.logger.Error("workflow identification failed", "error", err)
		return nil
	}

	var workflows []Workflow
	for _, block := range resp.Content {
		if block.Kind != llm.BlockToolUse {
			continue
		}
		workflows = append(workflows, Workflow{
			ID:               block.ID,
			Type:             workflowType(block.Name),
			ToolName:         block.Name,
			Input:            block.Input,
			RequiresApproval: requiresConfirmation(block.Name),
		})
	}
	if len(workflows) > 0 {
		s.history.Append(llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
	}
	return workflows
}

// calendarFastPath builds the availability check workflow and records
// its tool use so the upcoming result has a turn to answer.
func (s *Session) calendarFastPath() Workflow {
	now := time.Now()
	id := fmt.Sprintf("calendar-%d", now.UnixMilli())
	input := map[string]any{
		"timeMin":    now.Format(time.RFC3339),
		"timeMax":    now.Add(7 * 24 * time.Hour).Format(time.RFC3339),
		"maxResults": 10,
	}

	s.history.Append(llm.Message{Role: llm.RoleAssistant, Content: []llm.ContentBlock{
		llm.ToolUseBlock(id, "list-events", input),
	}})

	return Workflow{
		ID:       id,
		Type:     WorkflowCalendar,
		ToolName: "list-events",
		Input:    input,
	}
}

// executeWorkflow dispatches a non-gated workflow, records its result
// as a user turn, and feeds the outcome into the meeting context.
func (s *Session) executeWorkflow(ctx context.Context, wf Workflow) {
	result := s.executeToolCall(ctx, wf.ToolName, wf.Input, wf.ID)
	s.history.Append(llm.Message{Role: llm.RoleUser, Content: []llm.ContentBlock{result}})

	if !result.IsError {
		s.meeting.Update(wf.Type, result.Content)
	}
}

// workflowType maps a tool name to its workflow classification.
func workflowType(toolName string) WorkflowType {
	switch {
	case strings.HasPrefix(toolName, "web_search_exa"), strings.HasPrefix(toolName, "company_research"):
		return WorkflowSearch
	case toolName == "send_email":
		return WorkflowEmail
	case strings.HasPrefix(toolName, "list-events"), toolName == "create-event":
		return WorkflowCalendar
	case toolName == "send_message_on_slack":
		return WorkflowSlack
	}
	return WorkflowSearch
}
