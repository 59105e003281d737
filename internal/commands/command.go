package commands

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"pkdindustries/mascot/internal/companion"
	"pkdindustries/mascot/internal/config"
)

// Context is what a shell hands to a command: the parsed input, a way to
// answer, and the assistant behind the shell.
type Context interface {
	context.Context
	GetText() string
	GetCommand() string
	GetArgs() []string
	GetSource() string
	IsAdmin() bool
	Reply(msg string)
	Action(msg string)
	GetConfig() *config.Configuration
	GetAssistant() companion.Assistant
	GetLogger() *slog.Logger
}

// Command defines the interface for shell commands
type Command interface {
	Name() string
	Execute(ctx Context)
	AdminOnly() bool
}

// Registry manages command registration and dispatch
type Registry struct {
	commands       map[string]Command
	defaultCommand Command
}

// NewRegistry creates a new command registry
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

// NewDefaultRegistry registers every built-in command, with chat as the fallback.
func NewDefaultRegistry(version string) *Registry {
	r := NewRegistry()
	r.Register(NewHelpCommand(r))
	r.Register(&VersionCommand{Version: version})
	r.Register(&ToolsCommand{})
	r.Register(&HistoryCommand{})
	r.Register(&GetCommand{})
	r.Register(&SetCommand{})
	r.Register(&AdminCommand{})
	r.Register(&ChatCommand{})
	return r
}

// Register adds a command to the registry
// Commands with empty name are registered as the default fallback
func (r *Registry) Register(cmd Command) {
	name := cmd.Name()
	if name == "" {
		r.defaultCommand = cmd
		return
	}
	r.commands[name] = cmd
}

// Get retrieves a command by name
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Dispatch executes the appropriate command based on context
// Returns true if a command was executed, false otherwise
func (r *Registry) Dispatch(ctx Context) bool {
	cmdName := ctx.GetCommand()

	cmd, ok := r.commands[cmdName]
	if !ok {
		if strings.HasPrefix(cmdName, "/") {
			ctx.Reply("Unknown command " + cmdName + ". Try /help")
			return true
		}
		// Use default command if no match
		if r.defaultCommand != nil {
			r.defaultCommand.Execute(ctx)
			return true
		}
		return false
	}

	// Check admin permission
	if cmd.AdminOnly() && !ctx.IsAdmin() {
		ctx.Reply("You don't have permission to perform this action.")
		return true
	}

	cmd.Execute(ctx)
	return true
}

// All returns all registered commands (excluding default), sorted by name
func (r *Registry) All() []Command {
	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	slices.SortFunc(cmds, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return cmds
}
