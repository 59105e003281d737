package commands

import "strings"

// HelpCommand lists the commands the caller may run.
type HelpCommand struct {
	registry *Registry
}

func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{registry: registry}
}

func (c *HelpCommand) Name() string    { return "/help" }
func (c *HelpCommand) AdminOnly() bool { return false }

func (c *HelpCommand) Execute(ctx Context) {
	var public, admin []string
	for _, cmd := range c.registry.All() {
		if cmd.AdminOnly() {
			admin = append(admin, cmd.Name())
		} else {
			public = append(public, cmd.Name())
		}
	}

	var b strings.Builder
	b.WriteString("Commands: ")
	b.WriteString(strings.Join(public, " "))
	if len(admin) > 0 && ctx.IsAdmin() {
		b.WriteString(" | admin: ")
		b.WriteString(strings.Join(admin, " "))
	}
	b.WriteString(". Anything else goes to the assistant.")
	ctx.Reply(b.String())
}
