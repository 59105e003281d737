package commands

import (
	"context"
	"fmt"
	"strings"

	"pkdindustries/mascot/internal/agent"
)

// ShellHooks reports tool activity back to whichever shell context started
// the turn. Turns started outside a shell context are not reported.
func ShellHooks() agent.Hooks {
	return agent.Hooks{
		OnToolCall: func(ctx context.Context, call agent.ToolCall) {
			c, ok := ctx.(Context)
			if !ok || !c.GetConfig().Shell.ShowToolActions {
				return
			}
			c.Action(fmt.Sprintf("calling %s", displayName(call.Name)))
		},
	}
}

// displayName strips a namespace prefix ("script__weather" -> "weather").
func displayName(name string) string {
	if idx := strings.Index(name, "__"); idx != -1 {
		return name[idx+2:]
	}
	return name
}
