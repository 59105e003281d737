package tools

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

// ServerConfig describes how to reach one MCP tool server.
type ServerConfig struct {
	Name      string            `yaml:"-"`
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env"`
	Cwd       string            `yaml:"cwd"`
	URL       string            `yaml:"url"`
	Transport string            `yaml:"transport"`
	Disabled  bool              `yaml:"disabled"`
}

// MCPConfig is the parsed "mcpServers" document.
type MCPConfig struct {
	Servers []ServerConfig
}

type mcpConfigFile struct {
	MCPServers map[string]ServerConfig `yaml:"mcpServers"`
}

// LoadMCPConfig reads an MCP server configuration file. JSON is parsed as
// YAML, so both formats are accepted.
func LoadMCPConfig(path string) (*MCPConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mcp config: %w", err)
	}
	return ParseMCPConfig(data)
}

// ParseMCPConfig decodes and validates an MCP server configuration.
// Disabled servers are dropped; the rest are sorted by name.
func ParseMCPConfig(data []byte) (*MCPConfig, error) {
	var file mcpConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing mcp config: %w", err)
	}
	if file.MCPServers == nil {
		return nil, fmt.Errorf("parsing mcp config: missing mcpServers")
	}

	cfg := &MCPConfig{}
	for name, server := range file.MCPServers {
		if server.Disabled {
			continue
		}
		server.Name = name
		if err := server.normalize(); err != nil {
			return nil, fmt.Errorf("mcp server %q: %w", name, err)
		}
		cfg.Servers = append(cfg.Servers, server)
	}
	slices.SortFunc(cfg.Servers, func(a, b ServerConfig) int {
		return strings.Compare(a.Name, b.Name)
	})
	return cfg, nil
}

func (s *ServerConfig) normalize() error {
	transport := strings.ToLower(strings.TrimSpace(s.Transport))
	switch transport {
	case "streamable_http", "streamable-http", "streamablehttp":
		transport = TransportHTTP
	case "":
		if s.URL != "" {
			transport = TransportHTTP
		} else {
			transport = TransportStdio
		}
	}
	s.Transport = transport

	switch transport {
	case TransportStdio:
		if strings.TrimSpace(s.Command) == "" {
			return fmt.Errorf("stdio server needs a command")
		}
	case TransportSSE, TransportHTTP:
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("%s server needs a url", transport)
		}
	default:
		return fmt.Errorf("unknown transport %q", s.Transport)
	}
	return nil
}

// environ merges the server's env onto the current process environment,
// expanding $VARS in the configured values.
func (s ServerConfig) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+os.ExpandEnv(s.Env[k]))
	}
	return env
}
