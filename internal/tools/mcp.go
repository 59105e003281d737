package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const clientName = "mascot"

// ClientVersion is reported to MCP servers during the handshake.
var ClientVersion = "dev"

// newTransport builds the client transport for a server. Tests replace it
// to talk to in-memory servers.
var newTransport = func(server ServerConfig, stderr io.Writer) (mcp.Transport, error) {
	switch server.Transport {
	case TransportStdio:
		// Not CommandContext: the process must outlive the discovery context.
		cmd := exec.Command(server.Command, server.Args...)
		cmd.Env = server.environ()
		cmd.Dir = server.Cwd
		cmd.Stderr = stderr
		return &mcp.CommandTransport{Command: cmd}, nil
	case TransportSSE:
		return &mcp.SSEClientTransport{Endpoint: server.URL}, nil
	case TransportHTTP:
		return &mcp.StreamableClientTransport{Endpoint: server.URL}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", server.Transport)
	}
}

// mcpServer is one live connection and the tools it exposes.
type mcpServer struct {
	name    string
	session *mcp.ClientSession
	tools   []*mcpTool
}

func connectServer(ctx context.Context, server ServerConfig, logger *slog.Logger) (*mcpServer, error) {
	transport, err := newTransport(server, serverLogWriter{logger: logger, server: server.Name})
	if err != nil {
		return nil, err
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: ClientVersion,
	}, nil)

	logger.Debug("connecting to mcp server", "server", server.Name, "transport", server.Transport)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}

	conn := &mcpServer{name: server.Name, session: session}
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("listing tools: %w", err)
		}
		if tool == nil {
			continue
		}
		wrapped, err := newMCPTool(server.Name, session, tool)
		if err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("tool %q: %w", tool.Name, err)
		}
		logger.Debug("loaded mcp tool", "server", server.Name, "tool", tool.Name)
		conn.tools = append(conn.tools, wrapped)
	}

	logger.Info("mcp server ready", "server", server.Name, "tools", len(conn.tools))
	return conn, nil
}

func (s *mcpServer) Close() error {
	if s.session == nil {
		return nil
	}
	return s.session.Close()
}

// mcpTool adapts a remote MCP tool to the pollytool Tool interface.
type mcpTool struct {
	server  string
	session *mcp.ClientSession
	name    string
	schema  *jsonschema.Schema
}

func newMCPTool(server string, session *mcp.ClientSession, tool *mcp.Tool) (*mcpTool, error) {
	schema, err := convertSchema(tool.InputSchema)
	if err != nil {
		return nil, err
	}
	if schema.Description == "" {
		schema.Description = tool.Description
	}
	if schema.Title == "" {
		schema.Title = tool.Name
	}
	return &mcpTool{
		server:  server,
		session: session,
		name:    tool.Name,
		schema:  schema,
	}, nil
}

// convertSchema round-trips the wire schema into a typed jsonschema.Schema.
func convertSchema(input any) (*jsonschema.Schema, error) {
	schema := &jsonschema.Schema{}
	if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("encoding input schema: %w", err)
		}
		if err := json.Unmarshal(data, schema); err != nil {
			return nil, fmt.Errorf("decoding input schema: %w", err)
		}
	}
	if schema.Type == "" && len(schema.Types) == 0 {
		schema.Type = "object"
	}
	return schema, nil
}

func (t *mcpTool) GetName() string                { return t.name }
func (t *mcpTool) GetSchema() *jsonschema.Schema { return t.schema }
func (t *mcpTool) GetType() string                { return "mcp" }
func (t *mcpTool) GetSource() string              { return t.server }

func (t *mcpTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	result, err := t.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}

	text := contentText(result)
	if result.IsError {
		if text == "" {
			text = "tool reported an error without content"
		}
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}

// contentText flattens a tool result into the text handed back to the model.
func contentText(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s, %d bytes]", v.MIMEType, len(v.Data)))
		default:
			if data, err := json.Marshal(c); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	if len(parts) == 0 && result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, "\n")
}

// serverLogWriter forwards a stdio server's stderr into the structured log.
type serverLogWriter struct {
	logger *slog.Logger
	server string
}

func (w serverLogWriter) Write(p []byte) (int, error) {
	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.logger.Debug("mcp server stderr", "server", w.server, "line", line)
		}
	}
	return len(p), nil
}
