package agent

import (
	"maps"
	"time"
)

// Role identifies the author of a message in the conversation transcript.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request, issued by the model, to invoke a named tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`

	// ArgumentsError is set when the provider's raw arguments could not be
	// decoded into an object. Such calls are answered without invoking the tool.
	ArgumentsError string `json:"arguments_error,omitempty"`
}

// Message is a single turn of a conversation thread.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Time       time.Time  `json:"time,omitzero"`
}

// HasToolCalls reports whether the message requests any tool invocation.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolResultMessage answers the tool call identified by call.ID.
func ToolResultMessage(call ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    content,
	}
}

// CloneToolCall returns a copy that does not share the argument map.
func CloneToolCall(in ToolCall) ToolCall {
	out := in
	if in.Arguments != nil {
		out.Arguments = make(map[string]any, len(in.Arguments))
		maps.Copy(out.Arguments, in.Arguments)
	}
	return out
}

// CloneMessage returns a deep copy suitable for isolation across component boundaries.
func CloneMessage(in Message) Message {
	out := in
	if len(in.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(in.ToolCalls))
		for i := range in.ToolCalls {
			out.ToolCalls[i] = CloneToolCall(in.ToolCalls[i])
		}
	}
	return out
}

// CloneMessages returns deep copies of all messages.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i := range in {
		out[i] = CloneMessage(in[i])
	}
	return out
}
