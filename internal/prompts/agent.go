package prompts

// MaxToolLoopsNotice is appended to the final response when the
// orchestration loop hits its iteration ceiling with tool calls still
// pending.
const MaxToolLoopsNotice = "Maximum tool use loops reached."

// EmptyResponseFallback is the user-facing message returned when the
// model produces no displayable content for a turn.
const EmptyResponseFallback = "I processed your request but wasn't able to compose a response. Please try again."

// NoPendingActions is returned when the user confirms or rejects with
// nothing staged.
const NoPendingActions = "No pending actions to confirm or reject."

// ActionRejected acknowledges a rejected pending action.
const ActionRejected = "Okay, I won't send it. Let me know if you'd like to change anything."
