package shell

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"pkdindustries/mascot/internal/commands"
	"pkdindustries/mascot/internal/companion"
	"pkdindustries/mascot/internal/config"
	"pkdindustries/mascot/internal/irc"
)

// Initializer is the startup half of the companion.
type Initializer interface {
	companion.Assistant
	Initialize(ctx context.Context) error
}

// Run initializes the assistant, reporting progress on out, and then serves
// the configured shell until ctx ends. Startup failures are shown to the
// user and returned.
func Run(ctx context.Context, cfg *config.Configuration, assistant Initializer, version string, in io.Reader, out io.Writer) error {
	registry := commands.NewDefaultRegistry(version)
	terminal := NewTerminal(cfg, assistant, registry, in, out)

	if cfg.Shell.Kind == config.ShellTerminal {
		fmt.Fprint(out, Banner(version, isTerminal(out)))
	}

	terminal.Status(companion.StatusPreparing)
	if err := assistant.Initialize(ctx); err != nil {
		terminal.Status(companion.Describe(err))
		return err
	}

	switch cfg.Shell.Kind {
	case config.ShellIRC:
		terminal.Status(fmt.Sprintf("connecting to %s:%d %s", cfg.Server.Server, cfg.Server.Port, cfg.Server.Channel))
		return irc.Run(ctx, cfg, assistant, registry)
	default:
		terminal.Status(companion.StatusReady)
		if cfg.Shell.Greeting != "" {
			terminal.println(terminal.styles.reply.Render(cfg.Shell.Greeting))
		}
		return terminal.Run(ctx)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
