package commands

import (
	"fmt"
	"slices"
	"strings"
)

const adminUsage = "Usage: /admins [list | add <nick!user@host> | remove <nick!user@host>]"

// adminAction edits the admin list and returns the confirmation text.
type adminAction func(admins []string, mask string) ([]string, string, error)

var adminActions = map[string]adminAction{
	"add": func(admins []string, mask string) ([]string, string, error) {
		if err := ValidateHostmask(mask); err != nil {
			return admins, "", err
		}
		if slices.Contains(admins, mask) {
			return admins, "Already an admin: " + mask, nil
		}
		return append(admins, mask), "Added admin: " + mask, nil
	},
	"remove": func(admins []string, mask string) ([]string, string, error) {
		i := slices.Index(admins, mask)
		if i < 0 {
			return admins, "Not an admin: " + mask, nil
		}
		return slices.Delete(admins, i, i+1), "Removed admin: " + mask, nil
	},
}

// AdminCommand manages the hostmasks allowed to run admin commands on
// shared shells. The terminal user is always an admin.
type AdminCommand struct{}

func (c *AdminCommand) Name() string    { return "/admins" }
func (c *AdminCommand) AdminOnly() bool { return true }

func (c *AdminCommand) Execute(ctx Context) {
	shell := ctx.GetConfig().Shell
	args := ctx.GetArgs()

	if len(args) < 2 || args[1] == "list" {
		if len(shell.Admins) == 0 {
			ctx.Reply("No admins configured, everyone may use admin commands")
			return
		}
		ctx.Reply("Admins: " + strings.Join(shell.Admins, ", "))
		return
	}

	action, ok := adminActions[args[1]]
	if !ok || len(args) != 3 {
		ctx.Reply(adminUsage)
		return
	}

	admins, msg, err := action(shell.Admins, args[2])
	if err != nil {
		ctx.Reply(fmt.Sprintf("%s: %v", args[2], err))
		return
	}
	shell.Admins = admins
	ctx.GetLogger().Info("admin list changed", "action", args[1], "admins", len(admins))
	ctx.Reply(msg)
}
