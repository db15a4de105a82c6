package models

// Message roles used across the conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is a single turn entry in the conversation history. The same
// shape is used on the wire towards the capability layer and inside the
// persisted conversation state.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Tool describes a callable operation exposed to the capability layer.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the named operation with its typed argument schema.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall is an invocation the capability selected for this step.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the tool name and its JSON-encoded arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Session holds the credential pair required by every booking backend call.
// It is refreshed in place whenever a fresh authentication outcome appears;
// the latest outcome within a turn wins.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Valid reports whether both credentials are present.
func (s Session) Valid() bool {
	return s.Token != "" && s.UserID != ""
}

// ConversationState is everything carried across turns for one conversation.
// PendingCancellation is the two-step cancellation gate: it holds the
// reservation reference the user was just asked to confirm, and is cleared
// on any turn whose closing reply is not the exact confirmation question.
type ConversationState struct {
	Session             Session       `json:"session"`
	Messages            []ChatMessage `json:"messages"`
	PendingCancellation string        `json:"pendingCancellation,omitempty"`
}

// LastUserMessage returns the most recent user turn, or an empty string.
func (cs *ConversationState) LastUserMessage() string {
	for i := len(cs.Messages) - 1; i >= 0; i-- {
		if cs.Messages[i].Role == RoleUser {
			return cs.Messages[i].Content
		}
	}
	return ""
}
