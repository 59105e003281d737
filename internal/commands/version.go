package commands

import "fmt"

// VersionCommand reports the build and the model the thread is bound to.
type VersionCommand struct {
	Version string
}

func (c *VersionCommand) Name() string    { return "/version" }
func (c *VersionCommand) AdminOnly() bool { return false }

func (c *VersionCommand) Execute(ctx Context) {
	reply := fmt.Sprintf("mascot %s, model %s", c.Version, ctx.GetConfig().Model.Model)
	if a := ctx.GetAssistant(); a != nil && a.Ready() {
		reply += fmt.Sprintf(", %d tools", len(a.Tools()))
	}
	ctx.Reply(reply)
}
