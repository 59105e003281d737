package commands

import (
	"fmt"
	"strings"

	"pkdindustries/mascot/internal/agent"
)

const historyPreview = 60

// HistoryCommand handles the /history command for showing thread statistics
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string    { return "/history" }
func (c *HistoryCommand) AdminOnly() bool { return false }

func (c *HistoryCommand) Execute(ctx Context) {
	assistant := ctx.GetAssistant()
	history := assistant.History()

	counts := map[agent.Role]int{}
	calls := 0
	for _, msg := range history {
		counts[msg.Role]++
		calls += len(msg.ToolCalls)
	}

	ctx.Reply(fmt.Sprintf(
		"thread: %s, "+
			"messages: %d, "+
			"user: %d, "+
			"assistant: %d, "+
			"tool calls: %d, "+
			"tool results: %d",
		assistant.ThreadID(),
		len(history),
		counts[agent.RoleUser],
		counts[agent.RoleAssistant],
		calls,
		counts[agent.RoleTool],
	))

	// Optional count of recent messages to show
	args := ctx.GetArgs()
	if len(args) < 2 {
		return
	}
	var n int
	if _, err := fmt.Sscanf(args[1], "%d", &n); err != nil || n <= 0 {
		ctx.Reply("Usage: /history [count]")
		return
	}
	start := max(len(history)-n, 0)
	for _, msg := range history[start:] {
		ctx.Reply(summarize(msg))
	}
}

func summarize(msg agent.Message) string {
	switch {
	case msg.HasToolCalls():
		names := make([]string, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			names = append(names, call.Name)
		}
		return fmt.Sprintf("%s: [calls %s]", msg.Role, strings.Join(names, ", "))
	case msg.Role == agent.RoleTool:
		return fmt.Sprintf("%s %s: %s", msg.Role, msg.Name, clip(msg.Content))
	default:
		return fmt.Sprintf("%s: %s", msg.Role, clip(msg.Content))
	}
}

func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= historyPreview {
		return s
	}
	return s[:historyPreview-3] + "..."
}
