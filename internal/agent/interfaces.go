package agent

import (
	"context"

	"pkdindustries/mascot/internal/tools"
)

// Gateway produces the next assistant message for a conversation.
// The returned message either carries tool calls or is a final reply.
type Gateway interface {
	Generate(ctx context.Context, history []Message, tools []tools.Descriptor) (Message, error)
}

// ToolInvoker is the read-only tool surface the loop depends on.
type ToolInvoker interface {
	ListTools() []tools.Descriptor
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

// Store holds conversation threads.
type Store interface {
	Append(threadID string, msg Message) error
	History(threadID string) []Message
}
