package companion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"pkdindustries/mascot/internal/agent"
	"pkdindustries/mascot/internal/config"
	"pkdindustries/mascot/internal/core"
	"pkdindustries/mascot/internal/llm"
	"pkdindustries/mascot/internal/store"
	"pkdindustries/mascot/internal/tools"
)

var (
	// ErrNotReady is returned when a turn is submitted before Initialize succeeded.
	ErrNotReady = errors.New("assistant is not ready yet")
	// ErrBusy is returned when a turn is still in flight and the caller gave up waiting.
	ErrBusy = errors.New("assistant is busy with another request")
	// ErrEmptyInput is returned for blank submissions.
	ErrEmptyInput = errors.New("empty input")
)

// Assistant is what presentation shells talk to.
type Assistant interface {
	SubmitUserText(ctx context.Context, text string) (string, error)
	Ready() bool
	Tools() []tools.Descriptor
	History() []agent.Message
	ThreadID() string
}

// Deps are optional collaborators. Zero fields are built from the
// configuration during Initialize.
type Deps struct {
	Gateway agent.Gateway
	Tools   agent.ToolInvoker
	Store   agent.Store
	Hooks   agent.Hooks
	Logger  *slog.Logger
}

// Companion owns the single conversation thread and serializes turns on it.
type Companion struct {
	cfg    *config.Configuration
	deps   Deps
	logger *slog.Logger
	lock   *core.TurnLock

	mu      sync.RWMutex
	loop    *agent.Loop
	toolset *tools.Toolset
	store   agent.Store
}

var _ Assistant = (*Companion)(nil)

func New(cfg *config.Configuration, deps Deps) *Companion {
	logger := deps.Logger
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Companion{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("thread_id", cfg.Agent.ThreadID),
		lock:   core.NewTurnLock(),
	}
}

// Initialize discovers tools and sets up the gateway. Every failure is a
// *agent.StartupError and leaves the companion not ready.
func (c *Companion) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loop != nil {
		return nil
	}

	if err := c.cfg.Validate(); err != nil {
		return &agent.StartupError{Stage: "configuration", Err: err}
	}

	invoker := c.deps.Tools
	var toolset *tools.Toolset
	if invoker == nil {
		ts, err := c.discover(ctx)
		if err != nil {
			return &agent.StartupError{Stage: "tool discovery", Err: err}
		}
		toolset, invoker = ts, ts
	}

	gateway := c.deps.Gateway
	if gateway == nil {
		gateway = llm.NewPollyGateway(c.cfg)
	}

	st := c.deps.Store
	if st == nil {
		st = store.NewMemory()
	}

	loop, err := agent.NewLoop(gateway, invoker, st, agent.Config{
		ThreadID:      c.cfg.Agent.ThreadID,
		MaxRoundTrips: c.cfg.Agent.MaxRoundTrips,
		Hooks:         c.deps.Hooks,
		Logger:        c.logger,
		Verbose:       c.cfg.Shell.Verbose,
	})
	if err != nil {
		if toolset != nil {
			_ = toolset.Close()
		}
		return &agent.StartupError{Stage: "gateway", Err: err}
	}

	c.loop, c.toolset, c.store = loop, toolset, st
	c.logger.Info("assistant ready", "model", c.cfg.Model.Model, "tools", len(loop.Tools()))
	return nil
}

func (c *Companion) discover(ctx context.Context) (*tools.Toolset, error) {
	opts := tools.DiscoverOptions{
		Specs:   c.cfg.Tools.Specs,
		Timeout: c.cfg.Tools.Timeout,
		Logger:  c.logger,
	}
	if c.cfg.Tools.MCPConfig != "" {
		mcpConfig, err := tools.LoadMCPConfig(c.cfg.Tools.MCPConfig)
		if err != nil {
			return nil, err
		}
		opts.Config = mcpConfig
	}
	return tools.Discover(ctx, opts)
}

// SubmitUserText runs one turn. Turns never interleave: a submission waits
// for the in-flight turn until ctx ends, then fails with ErrBusy.
func (c *Companion) SubmitUserText(ctx context.Context, text string) (string, error) {
	loop := c.currentLoop()
	if loop == nil {
		return "", ErrNotReady
	}
	if text == "" {
		return "", ErrEmptyInput
	}

	var (
		result agent.Result
		err    error
	)
	if !c.lock.Do(ctx, c.logger, "submit_user_text", func() {
		result, err = loop.Run(ctx, text)
	}) {
		return "", ErrBusy
	}
	if err != nil {
		return "", err
	}
	return result.Reply, nil
}

func (c *Companion) currentLoop() *agent.Loop {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loop
}

// Ready reports whether Initialize has succeeded.
func (c *Companion) Ready() bool {
	return c.currentLoop() != nil
}

// Busy reports whether a turn is in flight.
func (c *Companion) Busy() bool {
	return c.lock.Busy()
}

// Tools returns the tool descriptors bound to the model.
func (c *Companion) Tools() []tools.Descriptor {
	if loop := c.currentLoop(); loop != nil {
		return loop.Tools()
	}
	return nil
}

// History returns the conversation so far.
func (c *Companion) History() []agent.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.store == nil {
		return []agent.Message{}
	}
	return c.store.History(c.cfg.Agent.ThreadID)
}

func (c *Companion) ThreadID() string {
	return c.cfg.Agent.ThreadID
}

// Close releases tool server connections. The companion is not ready afterwards.
func (c *Companion) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loop = nil
	if c.toolset == nil {
		return nil
	}
	err := c.toolset.Close()
	c.toolset = nil
	if err != nil {
		return fmt.Errorf("closing tool servers: %w", err)
	}
	return nil
}
