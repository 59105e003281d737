package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexschlessinger/pollytool/messages"
	"github.com/google/uuid"

	"pkdindustries/mascot/internal/agent"
)

// toPolly converts a stored message into pollytool's wire shape.
func toPolly(m agent.Message) messages.ChatMessage {
	out := messages.ChatMessage{Content: m.Content}
	switch m.Role {
	case agent.RoleSystem:
		out.Role = messages.MessageRoleSystem
	case agent.RoleUser:
		out.Role = messages.MessageRoleUser
	case agent.RoleTool:
		out.Role = messages.MessageRoleTool
		out.ToolCallID = m.ToolCallID
	default:
		out.Role = messages.MessageRoleAssistant
	}

	for _, call := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, messages.ChatMessageToolCall{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: encodeArguments(call),
		})
	}
	return out
}

func encodeArguments(call agent.ToolCall) string {
	if len(call.Arguments) == 0 {
		return "{}"
	}
	data, err := json.Marshal(call.Arguments)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// fromPolly converts a provider reply into an assistant message. Calls
// without an id get a generated one; arguments that are not a JSON object
// are recorded on the call rather than dropped.
func fromPolly(m messages.ChatMessage) agent.Message {
	out := agent.Message{Role: agent.RoleAssistant, Content: m.Content}
	for _, tc := range m.ToolCalls {
		call := agent.ToolCall{ID: tc.ID, Name: tc.Name}
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		args, err := decodeArguments(tc.Arguments)
		if err != nil {
			call.ArgumentsError = err.Error()
		} else {
			call.Arguments = args
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out
}

func decodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments %q: %w", truncate(raw, 80), err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
