package commands

import (
	"fmt"
	"slices"
	"strings"

	"pkdindustries/mascot/internal/tools"
)

// ToolsCommand handles the /tools command for inspecting discovered tools
type ToolsCommand struct{}

func (c *ToolsCommand) Name() string    { return "/tools" }
func (c *ToolsCommand) AdminOnly() bool { return false }

func (c *ToolsCommand) Execute(ctx Context) {
	args := ctx.GetArgs()
	if len(args) < 2 {
		c.listTools(ctx)
		return
	}
	c.describeTool(ctx, args[1])
}

func (c *ToolsCommand) listTools(ctx Context) {
	descriptors := ctx.GetAssistant().Tools()
	if len(descriptors) == 0 {
		ctx.Reply("No tools loaded")
		return
	}

	var toolNames []string
	for _, d := range descriptors {
		toolNames = append(toolNames, d.Name)
	}

	message := "Tools: " + strings.Join(toolNames, ", ")
	maxLen := ctx.GetConfig().Shell.ChunkMax
	if maxLen <= 0 {
		maxLen = 350
	}
	if len(message) > maxLen {
		message = message[:maxLen-3] + "..."
	}
	ctx.Reply(message)
}

func (c *ToolsCommand) describeTool(ctx Context, name string) {
	descriptors := ctx.GetAssistant().Tools()
	idx := slices.IndexFunc(descriptors, func(d tools.Descriptor) bool { return d.Name == name })
	if idx == -1 {
		ctx.Reply(fmt.Sprintf("Not found: %s", name))
		return
	}
	d := descriptors[idx]

	params := d.Parameters()
	names := make([]string, 0, len(params))
	for p := range params {
		names = append(names, p)
	}
	slices.Sort(names)

	required := d.Required()
	var fields []string
	for _, p := range names {
		field := p + " " + params[p]
		if slices.Contains(required, p) {
			field += " (required)"
		}
		fields = append(fields, field)
	}

	source := d.Server
	if source == "" {
		source = "local"
	}
	ctx.Reply(fmt.Sprintf("%s [%s]: %s", d.Name, source, d.Description))
	if len(fields) > 0 {
		ctx.Reply("Parameters: " + strings.Join(fields, ", "))
	}
}
