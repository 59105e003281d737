package irc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lrstanley/girc"

	"pkdindustries/mascot/internal/commands"
	"pkdindustries/mascot/internal/companion"
	"pkdindustries/mascot/internal/config"
	"pkdindustries/mascot/internal/core"
)

// Sender is the subset of *girc.Commander the shell writes through.
type Sender interface {
	Reply(event girc.Event, message string)
	Action(target, message string)
	Message(target, message string)
}

// ChatContext is one incoming PRIVMSG as seen by the command registry.
type ChatContext struct {
	context.Context
	config    *config.Configuration
	assistant companion.Assistant
	sender    Sender
	event     girc.Event
	line      addressing
	args      []string
	logger    *slog.Logger
}

var _ commands.Context = (*ChatContext)(nil)

// NewChatContext parses e for a client using nick. The returned context
// expires after the configured API timeout.
func NewChatContext(parent context.Context, cfg *config.Configuration, assistant companion.Assistant, sender Sender, nick string, e girc.Event) (*ChatContext, context.CancelFunc) {
	timedctx, cancel := context.WithTimeout(parent, cfg.API.Timeout)

	if e.Source == nil {
		e.Source = &girc.Source{Name: cfg.Server.Channel}
	}
	target := ""
	if len(e.Params) > 0 {
		target = e.Params[0]
	}

	line := parseLine(nick, target, e.Last())

	requestID := uuid.NewString()[:8]
	ctx := &ChatContext{
		Context:   timedctx,
		config:    cfg,
		assistant: assistant,
		sender:    sender,
		event:     e,
		line:      line,
		args:      strings.Fields(line.text),
		logger: core.WithFields(
			"request_id", requestID,
			"channel", target,
			"source", e.Source.Name,
		),
	}
	return ctx, cancel
}

func (c *ChatContext) GetConfig() *config.Configuration {
	return c.config
}

func (c *ChatContext) GetAssistant() companion.Assistant {
	return c.assistant
}

func (c *ChatContext) GetLogger() *slog.Logger {
	return c.logger
}

func (c *ChatContext) IsAddressed() bool {
	return c.line.addressed
}

func (c *ChatContext) IsPrivate() bool {
	return c.line.private
}

// Valid reports whether the message is meant for the assistant.
func (c *ChatContext) Valid() bool {
	return c.line.forAssistant()
}

func (c *ChatContext) GetText() string {
	return c.line.text
}

func (c *ChatContext) GetArgs() []string {
	return c.args
}

func (c *ChatContext) GetCommand() string {
	if len(c.args) == 0 {
		return ""
	}
	return strings.ToLower(c.args[0])
}

func (c *ChatContext) GetSource() string {
	return c.event.Source.Name
}

func (c *ChatContext) IsAdmin() bool {
	hostmask := c.event.Source.String()
	admin := isAdmin(hostmask, c.config.Shell.Admins)
	c.logger.Debug("checking hostmask", "hostmask", hostmask, "admin", admin)
	return admin
}

// Reply answers the sender, one IRC line per chunk.
func (c *ChatContext) Reply(message string) {
	for _, chunk := range Chunk(message, c.config.Shell.ChunkMax) {
		c.sender.Reply(c.event, chunk)
	}
}

func (c *ChatContext) Action(message string) {
	if c.IsPrivate() {
		// For PMs, send a regular message instead of an action
		c.sender.Message(c.event.Source.Name, message)
		return
	}
	c.sender.Action(c.event.Params[0], message)
}
