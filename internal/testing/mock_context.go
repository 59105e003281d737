package testing

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"pkdindustries/mascot/internal/companion"
	"pkdindustries/mascot/internal/config"
)

// MockContext implements commands.Context for testing
type MockContext struct {
	context.Context

	// Configurable return values
	Admin   bool
	Command string
	Source  string
	Text    string
	Args    []string

	// Recorded calls (for assertions)
	Replies []string
	Actions []string

	// Injected dependencies
	cfg       *config.Configuration
	assistant companion.Assistant
	logger    *slog.Logger
}

// NewMockContext creates a new MockContext with sensible defaults
func NewMockContext() *MockContext {
	return &MockContext{
		Context:   context.Background(),
		Source:    "testuser",
		Args:      []string{},
		Replies:   []string{},
		Actions:   []string{},
		cfg:       DefaultTestConfig(),
		assistant: NewMockAssistant(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Builder methods for fluent test setup

// WithContext sets a custom context (for timeout/cancellation testing)
func (m *MockContext) WithContext(ctx context.Context) *MockContext {
	m.Context = ctx
	return m
}

// WithAdmin sets the admin flag
func (m *MockContext) WithAdmin(admin bool) *MockContext {
	m.Admin = admin
	return m
}

// WithArgs sets the parsed arguments and the raw text they came from
func (m *MockContext) WithArgs(args ...string) *MockContext {
	m.Args = args
	m.Text = strings.Join(args, " ")
	if len(args) > 0 {
		m.Command = strings.ToLower(args[0])
	}
	return m
}

// WithText sets raw input the way a shell would tokenize it
func (m *MockContext) WithText(text string) *MockContext {
	m.WithArgs(strings.Fields(text)...)
	m.Text = text
	return m
}

// WithSource sets the source nick
func (m *MockContext) WithSource(source string) *MockContext {
	m.Source = source
	return m
}

// WithConfig sets the configuration
func (m *MockContext) WithConfig(cfg *config.Configuration) *MockContext {
	m.cfg = cfg
	return m
}

// WithAssistant sets the assistant behind the shell
func (m *MockContext) WithAssistant(a companion.Assistant) *MockContext {
	m.assistant = a
	return m
}

// WithLogger sets the logger
func (m *MockContext) WithLogger(logger *slog.Logger) *MockContext {
	m.logger = logger
	return m
}

// Event methods

func (m *MockContext) IsAdmin() bool {
	return m.Admin
}

func (m *MockContext) GetCommand() string {
	return m.Command
}

func (m *MockContext) GetSource() string {
	return m.Source
}

func (m *MockContext) GetArgs() []string {
	return m.Args
}

func (m *MockContext) GetText() string {
	return m.Text
}

// Responder methods

func (m *MockContext) Reply(msg string) {
	m.Replies = append(m.Replies, msg)
}

func (m *MockContext) Action(msg string) {
	m.Actions = append(m.Actions, msg)
}

// Runtime methods

func (m *MockContext) GetConfig() *config.Configuration {
	return m.cfg
}

func (m *MockContext) GetAssistant() companion.Assistant {
	return m.assistant
}

func (m *MockContext) GetLogger() *slog.Logger {
	return m.logger
}

// Assertion helpers

// HasReply checks if any reply contains the given substring
func (m *MockContext) HasReply(substring string) bool {
	for _, r := range m.Replies {
		if strings.Contains(r, substring) {
			return true
		}
	}
	return false
}

// LastReply returns the last reply, or empty string if none
func (m *MockContext) LastReply() string {
	if len(m.Replies) == 0 {
		return ""
	}
	return m.Replies[len(m.Replies)-1]
}

// ReplyCount returns the number of replies
func (m *MockContext) ReplyCount() int {
	return len(m.Replies)
}
