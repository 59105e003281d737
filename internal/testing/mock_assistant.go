package testing

import (
	"context"
	"sync"

	pollytools "github.com/alexschlessinger/pollytool/tools"

	"pkdindustries/mascot/internal/agent"
	"pkdindustries/mascot/internal/companion"
	"pkdindustries/mascot/internal/tools"
)

// MockAssistant implements companion.Assistant for testing shells and commands
type MockAssistant struct {
	mu sync.Mutex

	// Configurable return values
	NotReady    bool
	Reply       string
	Err         error
	Descriptors []tools.Descriptor
	Messages    []agent.Message
	Thread      string

	// Recorded calls (for assertions)
	Submitted []string
}

var _ companion.Assistant = (*MockAssistant)(nil)

// NewMockAssistant creates a ready assistant that echoes nothing.
func NewMockAssistant() *MockAssistant {
	return &MockAssistant{
		Reply:  "mock reply",
		Thread: "test-thread",
	}
}

func (m *MockAssistant) SubmitUserText(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Submitted = append(m.Submitted, text)
	if m.NotReady {
		return "", companion.ErrNotReady
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

func (m *MockAssistant) Ready() bool {
	return !m.NotReady
}

func (m *MockAssistant) Tools() []tools.Descriptor {
	return m.Descriptors
}

func (m *MockAssistant) History() []agent.Message {
	return agent.CloneMessages(m.Messages)
}

func (m *MockAssistant) ThreadID() string {
	return m.Thread
}

// WithTools registers fake tools and exposes their descriptors.
func (m *MockAssistant) WithTools(fakes ...*FakeTool) *MockAssistant {
	registry, err := NewToolRegistry(fakes...)
	if err != nil {
		panic(err)
	}
	m.Descriptors = registry.ListTools()
	return m
}

// NewToolRegistry builds a tools.Registry over fake tools.
func NewToolRegistry(fakes ...*FakeTool) (*tools.Registry, error) {
	toolset := make([]pollytools.Tool, len(fakes))
	for i, f := range fakes {
		toolset[i] = f
	}
	return tools.NewRegistry(toolset, tools.Options{})
}
