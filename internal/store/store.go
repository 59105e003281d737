package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pkdindustries/mascot/internal/agent"
)

var (
	// ErrOrphanToolResult is returned when a tool message answers no pending call.
	ErrOrphanToolResult = errors.New("tool result does not match a pending tool call")
	// ErrDuplicateCallID is returned when an assistant message reuses a call id.
	ErrDuplicateCallID = errors.New("duplicate tool call id")
	// ErrInvalidMessage is returned for messages with a missing or unknown role.
	ErrInvalidMessage = errors.New("invalid message")
)

type thread struct {
	messages []agent.Message
	// pending holds the unanswered call ids of the latest assistant message.
	pending map[string]struct{}
}

// Memory is an in-process conversation store keyed by thread id.
// Threads are created on first append and never deleted.
type Memory struct {
	mu      sync.RWMutex
	threads map[string]*thread
	now     func() time.Time
}

var _ agent.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		threads: map[string]*thread{},
		now:     time.Now,
	}
}

// Append validates msg against the thread and stores a copy of it.
func (m *Memory) Append(threadID string, msg agent.Message) error {
	if err := validateShape(msg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.threads[threadID]
	if !ok {
		t = &thread{}
	}

	switch msg.Role {
	case agent.RoleTool:
		if _, pending := t.pending[msg.ToolCallID]; !pending {
			return fmt.Errorf("%w: thread %q call %q", ErrOrphanToolResult, threadID, msg.ToolCallID)
		}
		delete(t.pending, msg.ToolCallID)
	case agent.RoleAssistant:
		t.pending = make(map[string]struct{}, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			t.pending[call.ID] = struct{}{}
		}
	default:
		t.pending = nil
	}

	stored := agent.CloneMessage(msg)
	if stored.Time.IsZero() {
		stored.Time = m.now()
	}
	t.messages = append(t.messages, stored)
	m.threads[threadID] = t
	return nil
}

func validateShape(msg agent.Message) error {
	switch msg.Role {
	case agent.RoleSystem, agent.RoleUser:
	case agent.RoleAssistant:
		seen := make(map[string]struct{}, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			if call.ID == "" {
				return fmt.Errorf("%w: tool call %q has no id", ErrInvalidMessage, call.Name)
			}
			if _, dup := seen[call.ID]; dup {
				return fmt.Errorf("%w: %q", ErrDuplicateCallID, call.ID)
			}
			seen[call.ID] = struct{}{}
		}
	case agent.RoleTool:
		if msg.ToolCallID == "" {
			return fmt.Errorf("%w: tool result without call id", ErrOrphanToolResult)
		}
	case "":
		return fmt.Errorf("%w: missing role", ErrInvalidMessage)
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, msg.Role)
	}
	return nil
}

// History returns a copy of the thread's messages in append order.
// Unknown threads yield an empty, non-nil slice.
func (m *Memory) History(threadID string) []agent.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.threads[threadID]
	if !ok {
		return []agent.Message{}
	}
	return agent.CloneMessages(t.messages)
}

// Len reports how many messages the thread holds.
func (m *Memory) Len(threadID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.threads[threadID]; ok {
		return len(t.messages)
	}
	return 0
}

// Pending lists the unanswered call ids of the thread's latest assistant message.
func (m *Memory) Pending(threadID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.threads[threadID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Threads lists the known thread ids, sorted.
func (m *Memory) Threads() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.threads))
	for id := range m.threads {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
