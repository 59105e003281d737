package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"pkdindustries/mascot/internal/commands"
	"pkdindustries/mascot/internal/companion"
	"pkdindustries/mascot/internal/config"
	"pkdindustries/mascot/internal/core"
)

const (
	promptText = "> "
	localUser  = "you"
)

var quitCommands = []string{"/quit", "/exit"}

type styles struct {
	reply  lipgloss.Style
	action lipgloss.Style
	status lipgloss.Style
	prompt lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		reply:  r.NewStyle().Foreground(lipgloss.Color("213")),
		action: r.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		status: r.NewStyle().Foreground(lipgloss.Color("244")),
		prompt: r.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	}
}

// Terminal is a line-oriented chat shell on a reader/writer pair.
type Terminal struct {
	cfg       *config.Configuration
	assistant companion.Assistant
	registry  *commands.Registry
	in        io.Reader
	out       io.Writer
	styles    styles
	logger    *slog.Logger

	mu sync.Mutex
}

func NewTerminal(cfg *config.Configuration, assistant companion.Assistant, registry *commands.Registry, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		cfg:       cfg,
		assistant: assistant,
		registry:  registry,
		in:        in,
		out:       out,
		styles:    newStyles(out),
		logger:    core.WithFields("shell", config.ShellTerminal),
	}
}

// Status prints a status line such as "thinking...".
func (t *Terminal) Status(msg string) {
	t.println(t.styles.status.Render(msg))
}

func (t *Terminal) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, s)
}

func (t *Terminal) prompt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, t.styles.prompt.Render(promptText))
}

// Run reads one submission per line until the input ends, a quit command
// is entered, or ctx is cancelled.
func (t *Terminal) Run(ctx context.Context) error {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(t.in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		t.prompt()
		select {
		case <-ctx.Done():
			t.println("")
			return nil
		case line, ok := <-lines:
			if !ok {
				t.println("")
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			if quit := t.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one line of input and reports whether the user asked to quit.
func (t *Terminal) handle(ctx context.Context, line string) bool {
	text := strings.TrimSpace(line)
	if text == "" {
		return false
	}
	for _, q := range quitCommands {
		if strings.EqualFold(text, q) {
			return true
		}
	}

	if t.cfg.API.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.API.Timeout)
		defer cancel()
	}

	tc := &TerminalContext{
		Context:  ctx,
		terminal: t,
		text:     text,
		args:     strings.Fields(text),
	}
	if !strings.HasPrefix(tc.GetCommand(), "/") {
		t.Status(companion.StatusThinking)
	}
	t.logger.Debug("input received", "text", core.Preview(text, t.cfg.Shell.Verbose))
	t.registry.Dispatch(tc)
	return false
}

// TerminalContext is one line of terminal input as seen by the command registry.
type TerminalContext struct {
	context.Context
	terminal *Terminal
	text     string
	args     []string
}

var _ commands.Context = (*TerminalContext)(nil)

func (c *TerminalContext) GetText() string   { return c.text }
func (c *TerminalContext) GetArgs() []string { return c.args }
func (c *TerminalContext) GetSource() string { return localUser }

// IsAdmin is always true: the terminal belongs to the local user.
func (c *TerminalContext) IsAdmin() bool { return true }

func (c *TerminalContext) GetCommand() string {
	if len(c.args) == 0 {
		return ""
	}
	return strings.ToLower(c.args[0])
}

func (c *TerminalContext) Reply(msg string) {
	c.terminal.println(c.terminal.styles.reply.Render(msg))
}

func (c *TerminalContext) Action(msg string) {
	c.terminal.println(c.terminal.styles.action.Render("[" + msg + "]"))
}

func (c *TerminalContext) GetConfig() *config.Configuration {
	return c.terminal.cfg
}

func (c *TerminalContext) GetAssistant() companion.Assistant {
	return c.terminal.assistant
}

func (c *TerminalContext) GetLogger() *slog.Logger {
	return c.terminal.logger
}
