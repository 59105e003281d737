package companion

import (
	"context"
	"errors"
	"fmt"

	"pkdindustries/mascot/internal/agent"
)

// Status texts shown by shells around a turn.
const (
	StatusPreparing = "preparing the assistant..."
	StatusReady     = "ready! talk to me."
	StatusThinking  = "thinking..."
	NoReply         = "(no reply)"
)

// Describe turns any failure into the text a shell shows the user.
func Describe(err error) string {
	var startup *agent.StartupError
	var unavailable *agent.ModelUnavailableError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &startup):
		return fmt.Sprintf("an error occurred while initializing the assistant (%s): %v", startup.Stage, startup.Err)
	case errors.Is(err, ErrNotReady):
		return "the assistant is not ready yet."
	case errors.Is(err, ErrBusy):
		return "still working on the previous request, try again in a moment."
	case errors.Is(err, ErrEmptyInput):
		return "say something first."
	case errors.Is(err, agent.ErrRecursionLimitExceeded):
		return fmt.Sprintf("gave up after too many tool calls: %v", err)
	case errors.As(err, &unavailable):
		return fmt.Sprintf("could not reach the model: %v", unavailable.Err)
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out."
	default:
		return fmt.Sprintf("an internal error occurred: %v", err)
	}
}

// ReplyText renders a successful reply, substituting a placeholder when the
// model answered with empty content.
func ReplyText(reply string) string {
	if reply == "" {
		return NoReply
	}
	return reply
}
