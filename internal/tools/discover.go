package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pollytools "github.com/alexschlessinger/pollytool/tools"
	"github.com/sourcegraph/conc/iter"

	"pkdindustries/mascot/internal/core"
)

// DiscoverOptions configure startup tool discovery.
type DiscoverOptions struct {
	// Config lists the MCP servers to connect to.
	Config *MCPConfig
	// Specs are additional pollytool tool specs (shell scripts, MCP json files).
	Specs []string
	// Timeout bounds each tool invocation.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Toolset is the result of discovery: the registry plus the live server
// connections backing it.
type Toolset struct {
	*Registry
	servers []*mcpServer
	// specs owns the clients started by pollytool spec loading.
	specs *pollytools.ToolRegistry
}

// Discover connects to every configured server in parallel and builds the
// registry. Any server failing is fatal; connections already made are closed.
func Discover(ctx context.Context, opts DiscoverOptions) (*Toolset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = core.GetLogger()
	}
	var servers []ServerConfig
	if opts.Config != nil {
		servers = opts.Config.Servers
	}
	if len(servers) == 0 && len(opts.Specs) == 0 {
		return nil, ErrNoServers
	}

	start := time.Now()
	defer core.LogDuration(logger, "tool_discovery", start)

	type outcome struct {
		server *mcpServer
		err    error
	}
	outcomes := iter.Map(servers, func(s *ServerConfig) outcome {
		conn, err := connectServer(ctx, *s, logger)
		if err != nil {
			return outcome{err: fmt.Errorf("mcp server %q: %w", s.Name, err)}
		}
		return outcome{server: conn}
	})

	ts := &Toolset{}
	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		ts.servers = append(ts.servers, o.server)
	}
	if len(errs) > 0 {
		_ = ts.Close()
		return nil, errors.Join(errs...)
	}

	var toolset []pollytools.Tool
	for _, s := range ts.servers {
		for _, t := range s.tools {
			toolset = append(toolset, t)
		}
	}

	if len(opts.Specs) > 0 {
		ts.specs = pollytools.NewToolRegistry([]pollytools.Tool{})
		if err := loadSpecs(ts.specs, opts.Specs); err != nil {
			_ = ts.Close()
			return nil, err
		}
		toolset = append(toolset, ts.specs.All()...)
	}

	registry, err := NewRegistry(toolset, Options{Timeout: opts.Timeout, Logger: logger})
	if err != nil {
		_ = ts.Close()
		return nil, err
	}
	ts.Registry = registry

	logger.Info("tools discovered", "servers", len(ts.servers), "tools", registry.Len())
	return ts, nil
}

// loadSpecs resolves extra tool specs through pollytool's loader. Any MCP
// clients it starts stay owned by polly.
func loadSpecs(polly *pollytools.ToolRegistry, specs []string) error {
	for _, spec := range specs {
		if _, err := polly.LoadToolAuto(spec); err != nil {
			return fmt.Errorf("loading tool %q: %w", spec, err)
		}
	}
	return nil
}

// Close shuts down every server connection, including those opened while
// loading tool specs.
func (ts *Toolset) Close() error {
	var errs []error
	for _, s := range ts.servers {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", s.name, err))
		}
	}
	ts.servers = nil
	if ts.specs != nil {
		if err := ts.specs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing tool specs: %w", err))
		}
		ts.specs = nil
	}
	return errors.Join(errs...)
}

// Servers lists the names of the connected MCP servers.
func (ts *Toolset) Servers() []string {
	names := make([]string, len(ts.servers))
	for i, s := range ts.servers {
		names[i] = s.name
	}
	return names
}
