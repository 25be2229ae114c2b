package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/callistohq/callisto/internal/prompts"
)

// sendingTools lists tool names whose execution pushes content to other
// people. These never run directly from the orchestration loop; they
// are staged and wait for an explicit yes.
var sendingTools = map[string]bool{
	"send_email":            true,
	"send_slack_message":    true,
	"send_message_on_slack": true,
	"send_message":          true,
	"post_message":          true,
	"create_message":        true,
	"send_notification":     true,
	"post_notification":     true,
}

// requiresConfirmation reports whether a tool is confirmation-gated.
func requiresConfirmation(toolName string) bool {
	return sendingTools[toolName]
}

// confirmationGatedCount counts registered tools behind the gate.
func (s *Session) confirmationGatedCount() int {
	n := 0
	for _, t := range s.registry.Tools() {
		if requiresConfirmation(t.Name) {
			n++
		}
	}
	return n
}

// PendingAction is one staged outbound message awaiting a yes or no.
// The queue is last-in-first-out: a bare confirmation always applies to
// the most recently staged action.
type PendingAction struct {
	Tool   string
	Input  map[string]any
	Staged time.Time
}

// Kind classifies the action for display purposes.
func (a *PendingAction) Kind() string {
	if a.Tool == "send_email" {
		return "Email"
	}
	return "Slack Message"
}

// Preview renders the staged action for user review, ending with the
// confirmation question.
func (a *PendingAction) Preview() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s Staged:\n", a.Kind())

	if a.Tool == "send_email" {
		fmt.Fprintf(&b, "To: %v\n", a.Input["to"])
		if subject, ok := a.Input["subject"]; ok {
			fmt.Fprintf(&b, "Subject: %v\n", subject)
		}
		fmt.Fprintf(&b, "Message: %v\n", a.Input["body"])
	} else {
		fmt.Fprintf(&b, "Channel: %v\n", a.Input["channel"])
		fmt.Fprintf(&b, "Message: %v\n", a.Input["message"])
	}

	b.WriteString("\nSend message? (Y/N)\n")
	return b.String()
}

// stageAction queues an outbound message and returns the preview. The
// orchestration loop returns this to the user immediately; no tool
// executes until Confirm.
func (s *Session) stageAction(tool string, input map[string]any) string {
	action := &PendingAction{Tool: tool, Input: input, Staged: time.Now()}

	s.mu.Lock()
	s.pending = append(s.pending, action)
	s.mu.Unlock()

	s.logger.Info("staged outbound message", "tool", tool)
	return action.Preview()
}

// popPending removes and returns the most recently staged action.
func (s *Session) popPending() *PendingAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	action := s.pending[len(s.pending)-1]
	s.pending = s.pending[:len(s.pending)-1]
	return action
}

// confirmPending executes the current pending action through the
// normal dispatch path. This is the only route by which a
// confirmation-gated tool ever runs.
func (s *Session) confirmPending(ctx context.Context) string {
	action := s.popPending()
	if action == nil {
		return prompts.NoPendingActions
	}

	result := s.executeToolCall(ctx, action.Tool, action.Input, fmt.Sprintf("confirm-%d", action.Staged.UnixMilli()))
	if result.IsError {
		s.logger.Warn("confirmed action failed", "tool", action.Tool)
		return fmt.Sprintf("Failed to send message: %s", result.Content)
	}

	s.logger.Info("confirmed action executed", "tool", action.Tool)
	return fmt.Sprintf("Message sent successfully:\n%s", result.Content)
}

// rejectPending discards the current pending action.
func (s *Session) rejectPending() string {
	action := s.popPending()
	if action == nil {
		return prompts.NoPendingActions
	}
	s.logger.Info("pending action rejected", "tool", action.Tool)
	return prompts.ActionRejected
}
