package commands

import (
	"strings"
	"time"

	"pkdindustries/mascot/internal/companion"
)

// ChatCommand sends anything that is not a command to the assistant.
type ChatCommand struct{}

func (c *ChatCommand) Name() string    { return "" }
func (c *ChatCommand) AdminOnly() bool { return false }

func (c *ChatCommand) Execute(ctx Context) {
	text := strings.TrimSpace(ctx.GetText())
	logger := ctx.GetLogger()

	start := time.Now()
	reply, err := ctx.GetAssistant().SubmitUserText(ctx, text)
	if err != nil {
		logger.Warn("turn failed", "source", ctx.GetSource(), "error", err)
		ctx.Reply(companion.Describe(err))
		return
	}

	logger.Debug("turn completed", "source", ctx.GetSource(), "duration_ms", time.Since(start).Milliseconds())
	ctx.Reply(companion.ReplyText(reply))
}
