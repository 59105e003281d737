package tools

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	pollytools "github.com/alexschlessinger/pollytool/tools"

	"pkdindustries/mascot/internal/core"
)

// Registry is the immutable set of tools available to every turn.
// It is built once at startup and shared read-only afterwards.
type Registry struct {
	descriptors []Descriptor
	byName      map[string]int
	timeout     time.Duration
	logger      *slog.Logger
}

// Options tune a Registry.
type Options struct {
	// Timeout bounds each invocation; zero means no registry-imposed limit.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRegistry indexes toolset by name. Names must be unique.
func NewRegistry(toolset []pollytools.Tool, opts Options) (*Registry, error) {
	r := &Registry{
		byName:  make(map[string]int, len(toolset)),
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if r.logger == nil {
		r.logger = core.GetLogger()
	}

	descriptors := make([]Descriptor, 0, len(toolset))
	seen := make(map[string]string, len(toolset))
	for _, tool := range toolset {
		if tool == nil {
			continue
		}
		name := tool.GetName()
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("tool from %q has an empty name", tool.GetSource())
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q offered by %q and %q", ErrDuplicateTool, name, prev, tool.GetSource())
		}
		seen[name] = tool.GetSource()
		descriptors = append(descriptors, newDescriptor(tool))
	}

	slices.SortFunc(descriptors, func(a, b Descriptor) int {
		return strings.Compare(a.Name, b.Name)
	})
	for i, d := range descriptors {
		r.byName[d.Name] = i
	}
	r.descriptors = descriptors
	return r, nil
}

// ListTools returns the descriptors sorted by name.
func (r *Registry) ListTools() []Descriptor {
	return slices.Clone(r.descriptors)
}

// Get looks up a descriptor by name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	return len(r.descriptors)
}

// Names lists tool names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.Name
	}
	return names
}

type invokeResult struct {
	output string
	err    error
}

// Invoke runs the named tool exactly once. Unknown names fail with
// ErrToolNotFound; every other fault is returned as *ToolInvocationError.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	d, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if err := ctx.Err(); err != nil {
		return "", &ToolInvocationError{Tool: name, Err: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if args == nil {
		args = map[string]any{}
	}

	logger := core.WithTool(r.logger, name, args)
	start := time.Now()
	done := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- invokeResult{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		out, err := d.tool.Execute(ctx, args)
		done <- invokeResult{output: out, err: err}
	}()

	var res invokeResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = invokeResult{err: ctx.Err()}
	}
	defer core.LogDuration(logger, "tool_invoke", start)

	if res.err != nil {
		logger.Warn("tool invocation failed", "error", res.err, "duration_ms", time.Since(start).Milliseconds())
		return "", &ToolInvocationError{Tool: name, Err: res.err}
	}
	return res.output, nil
}

// PollyTools returns the bound implementations in registry order.
func (r *Registry) PollyTools() []pollytools.Tool {
	out := make([]pollytools.Tool, len(r.descriptors))
	for i, d := range r.descriptors {
		out[i] = d.tool
	}
	return out
}
