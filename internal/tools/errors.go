package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrToolNotFound is returned by Invoke when no tool has the requested name.
	ErrToolNotFound = errors.New("tool not found")
	// ErrDuplicateTool is returned when two tool servers expose the same name.
	ErrDuplicateTool = errors.New("duplicate tool name")
	// ErrNoServers is returned by discovery when nothing could be loaded.
	ErrNoServers = errors.New("no tool servers configured")
)

// ToolInvocationError wraps any fault raised while a tool was running,
// including timeouts, panics and tool-reported errors.
type ToolInvocationError struct {
	Tool string
	Err  error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}
