package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listArgs struct {
	Path string `json:"path" jsonschema:"directory to list"`
}

type readArgs struct {
	Path string `json:"path" jsonschema:"file to read"`
}

func newFilesystemServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "filesystem", Version: "v0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "list_directory", Description: "List files in a directory"},
		func(_ context.Context, _ *mcp.CallToolRequest, in listArgs) (*mcp.CallToolResult, any, error) {
			if in.Path == "/missing" {
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: "ENOENT: no such directory"}},
				}, nil, nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "notes.txt\nshiba.gif"}},
			}, nil, nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: "read_file", Description: "Read a file"},
		func(_ context.Context, _ *mcp.CallToolRequest, in readArgs) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "contents of " + in.Path}},
			}, nil, nil
		})
	return server
}

func newBrowserServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "playwright", Version: "v0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "browser_navigate", Description: "Open a URL"},
		func(_ context.Context, _ *mcp.CallToolRequest, in struct {
			URL string `json:"url"`
		}) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "navigated to " + in.URL}},
			}, nil, nil
		})
	return server
}

// useInMemoryServers routes discovery to in-process servers keyed by name.
func useInMemoryServers(t *testing.T, servers map[string]*mcp.Server) {
	t.Helper()
	prev := newTransport
	t.Cleanup(func() { newTransport = prev })

	newTransport = func(cfg ServerConfig, _ io.Writer) (mcp.Transport, error) {
		server, ok := servers[cfg.Name]
		if !ok {
			return nil, fmt.Errorf("no in-memory server %q", cfg.Name)
		}
		st, ct := mcp.NewInMemoryTransports()
		ss, err := server.Connect(context.Background(), st, nil)
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { _ = ss.Close() })
		return ct, nil
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(names ...string) *MCPConfig {
	cfg := &MCPConfig{}
	for _, name := range names {
		cfg.Servers = append(cfg.Servers, ServerConfig{Name: name, Command: name, Transport: TransportStdio})
	}
	return cfg
}

func TestDiscover_AggregatesServers(t *testing.T) {
	useInMemoryServers(t, map[string]*mcp.Server{
		"filesystem": newFilesystemServer(),
		"playwright": newBrowserServer(),
	})

	ts, err := Discover(context.Background(), DiscoverOptions{
		Config: testConfig("filesystem", "playwright"),
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.Close() })

	assert.Equal(t, []string{"browser_navigate", "list_directory", "read_file"}, ts.Names())
	assert.Equal(t, []string{"filesystem", "playwright"}, ts.Servers())

	d, ok := ts.Get("list_directory")
	require.True(t, ok)
	assert.Equal(t, "filesystem", d.Server)
	assert.Equal(t, "List files in a directory", d.Description)
	assert.Equal(t, "string", d.Parameters()["path"])
	assert.Equal(t, "mcp", d.Tool().GetType())
}

func TestDiscover_InvokeRemoteTool(t *testing.T) {
	useInMemoryServers(t, map[string]*mcp.Server{"filesystem": newFilesystemServer()})

	ts, err := Discover(context.Background(), DiscoverOptions{
		Config: testConfig("filesystem"),
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.Close() })

	out, err := ts.Invoke(context.Background(), "list_directory", map[string]any{"path": "."})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt\nshiba.gif", out)

	_, err = ts.Invoke(context.Background(), "list_directory", map[string]any{"path": "/missing"})
	var invErr *ToolInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, err.Error(), "ENOENT")
}

func TestDiscover_ServerFailureIsFatal(t *testing.T) {
	useInMemoryServers(t, map[string]*mcp.Server{"filesystem": newFilesystemServer()})

	_, err := Discover(context.Background(), DiscoverOptions{
		Config: testConfig("filesystem", "unreachable"),
		Logger: quietLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `mcp server "unreachable"`)
}

func TestDiscover_DuplicateToolAcrossServers(t *testing.T) {
	useInMemoryServers(t, map[string]*mcp.Server{
		"fs-a": newFilesystemServer(),
		"fs-b": newFilesystemServer(),
	})

	_, err := Discover(context.Background(), DiscoverOptions{
		Config: testConfig("fs-a", "fs-b"),
		Logger: quietLogger(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTool)
}

func TestDiscover_NothingConfigured(t *testing.T) {
	_, err := Discover(context.Background(), DiscoverOptions{Config: &MCPConfig{}, Logger: quietLogger()})
	assert.ErrorIs(t, err, ErrNoServers)
}

func TestConvertSchema_DefaultsToObject(t *testing.T) {
	s, err := convertSchema(nil)
	require.NoError(t, err)
	assert.Equal(t, "object", s.Type)

	s, err = convertSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"url": map[string]any{"type": "string"}},
		"required":   []any{"url"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"url"}, s.Required)
	assert.Equal(t, "string", s.Properties["url"].Type)
}

func TestContentText(t *testing.T) {
	res := &mcp.CallToolResult{Content: []mcp.Content{
		&mcp.TextContent{Text: "line one"},
		&mcp.ImageContent{MIMEType: "image/png", Data: []byte{1, 2, 3}},
	}}
	text := contentText(res)
	assert.True(t, strings.HasPrefix(text, "line one\n"))
	assert.Contains(t, text, "[image image/png, 3 bytes]")

	res = &mcp.CallToolResult{StructuredContent: map[string]any{"count": 2}}
	assert.Equal(t, `{"count":2}`, contentText(res))
}

// writeShellTool writes an executable tool script answering --schema and --execute.
func writeShellTool(t *testing.T, dir, file string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	script := `#!/bin/sh
if [ "$1" = "--schema" ]; then
  echo '{"title":"clock","description":"Current time","type":"object","properties":{}}'
else
  echo "12:00"
fi
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestDiscover_SpecToolsClosedWithToolset(t *testing.T) {
	spec := writeShellTool(t, t.TempDir(), "date.sh")

	ts, err := Discover(context.Background(), DiscoverOptions{
		Specs:  []string{spec},
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"date__clock"}, ts.Names())
	out, err := ts.Invoke(context.Background(), "date__clock", nil)
	require.NoError(t, err)
	assert.Equal(t, "12:00", out)

	specs := ts.specs
	require.NotNil(t, specs)
	require.NoError(t, ts.Close())
	assert.Nil(t, ts.specs)
	assert.Empty(t, specs.All(), "closing the toolset releases spec-loaded tools")
}

func TestDiscover_BadSpecIsFatal(t *testing.T) {
	spec := writeShellTool(t, t.TempDir(), "date.sh")

	ts, err := Discover(context.Background(), DiscoverOptions{
		Specs:  []string{spec, filepath.Join(t.TempDir(), "missing.json")},
		Logger: quietLogger(),
	})
	require.Error(t, err)
	assert.Nil(t, ts)
	assert.Contains(t, err.Error(), "missing.json")
}
