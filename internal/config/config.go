package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	ShellTerminal = "terminal"
	ShellIRC      = "irc"
)

// DefaultPrompt is the system instruction bound to every model call.
const DefaultPrompt = `You are a helpful AI assistant living on the user's desktop. Show the reasoning you went through before giving your conclusion.
You can use a browser automation tool (Playwright) and a filesystem tool to operate on the local machine. Use them where appropriate to answer the user's questions.
When you use a tool, answer only with information obtained from that tool. When saving files with the filesystem tool, save them under {{savedir}}.
First decide from the user's question what each tool is needed for and how many times it must be called. Call tools as many times as needed to gather information, and once everything has been collected, answer based on it.
If accessing a site fails, try again: the error may be network related.`

type Configuration struct {
	Shell  *ShellConfig
	Server *ServerConfig
	Agent  *AgentConfig
	Model  *ModelConfig
	Tools  *ToolsConfig
	API    *APIConfig
}

type ShellConfig struct {
	Kind            string
	Greeting        string
	Admins          []string
	ChunkMax        int
	ShowToolActions bool
	Verbose         bool
}

// ServerConfig holds the IRC connection settings used by the irc shell.
type ServerConfig struct {
	Nick        string
	Server      string
	Port        int
	Channel     string
	SSL         bool
	TLSInsecure bool
	SASLNick    string
	SASLPass    string
}

type AgentConfig struct {
	Prompt        string
	SaveDir       string
	MaxRoundTrips int
	ThreadID      string
}

type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Thinking    bool
}

type ToolsConfig struct {
	MCPConfig string
	Specs     []string
	Timeout   time.Duration
}

type APIConfig struct {
	Timeout      time.Duration
	OpenAIKey    string
	OpenAIURL    string
	AnthropicKey string
	GeminiKey    string
	OllamaURL    string
	OllamaKey    string
}

// YamlSource implements cli.ValueSource for a map loaded from YAML
type YamlSource struct {
	data map[string]any
	key  string
}

func (y *YamlSource) Lookup() (string, bool) {
	if v, ok := y.data[y.key]; ok {
		// Handle slices by joining with comma
		if slice, ok := v.([]any); ok {
			var strs []string
			for _, item := range slice {
				strs = append(strs, fmt.Sprintf("%v", item))
			}
			return strings.Join(strs, ","), true
		}
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

func (y *YamlSource) String() string   { return "yaml" }
func (y *YamlSource) GoString() string { return "yaml" }

// GetFlags returns the command line flags, each resolved from
// EnvVar > YAML config file > default.
func GetFlags() []cli.Flag {
	return buildFlags(loadConfigData(getConfigPath(os.Args)))
}

func loadConfigData(path string) map[string]any {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", path, err)
		return nil
	}
	var configData map[string]any
	if err := yaml.Unmarshal(data, &configData); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", path, err)
		return nil
	}
	return configData
}

func buildFlags(configData map[string]any) []cli.Flag {
	src := func(key string, env ...string) cli.ValueSourceChain {
		chain := cli.ValueSourceChain{}
		for _, e := range env {
			chain.Chain = append(chain.Chain, cli.EnvVar(e))
		}
		if configData != nil {
			chain.Chain = append(chain.Chain, &YamlSource{data: configData, key: key})
		}
		return chain
	}

	return []cli.Flag{
		// Config file
		&cli.StringFlag{Name: "config", Aliases: []string{"b"}, Usage: "use the named configuration file", Sources: cli.EnvVars("MASCOT_CONFIG")},

		// API Configuration
		&cli.StringFlag{Name: "geminikey", Usage: "Google Gemini API key", Sources: src("geminikey", "MASCOT_GEMINIKEY", "GOOGLE_APIKEY")},
		&cli.StringFlag{Name: "openaikey", Usage: "OpenAI API key", Sources: src("openaikey", "MASCOT_OPENAIKEY")},
		&cli.StringFlag{Name: "openaiurl", Usage: "OpenAI API URL (for custom endpoints)", Sources: src("openaiurl", "MASCOT_OPENAIURL")},
		&cli.StringFlag{Name: "anthropickey", Usage: "Anthropic API key", Sources: src("anthropickey", "MASCOT_ANTHROPICKEY")},
		&cli.StringFlag{Name: "ollamaurl", Value: "http://localhost:11434", Usage: "Ollama API URL", Sources: src("ollamaurl", "MASCOT_OLLAMAURL")},
		&cli.StringFlag{Name: "ollamakey", Usage: "Ollama API key (Bearer token for authentication)", Sources: src("ollamakey", "MASCOT_OLLAMAKEY")},
		&cli.DurationFlag{Name: "apitimeout", Aliases: []string{"t"}, Value: time.Minute * 5, Usage: "timeout for each completion request", Sources: src("apitimeout", "MASCOT_APITIMEOUT")},

		// Model Configuration
		&cli.StringFlag{Name: "model", Value: "gemini/gemini-2.0-flash", Usage: "model to be used for responses, as provider/model", Sources: src("model", "MASCOT_MODEL")},
		&cli.FloatFlag{Name: "temperature", Value: 0.001, Usage: "temperature for the completion", Sources: src("temperature", "MASCOT_TEMPERATURE")},
		&cli.IntFlag{Name: "maxtokens", Value: 4096, Usage: "maximum number of tokens to generate", Sources: src("maxtokens", "MASCOT_MAXTOKENS")},
		&cli.BoolFlag{Name: "thinking", Usage: "enable thinking/reasoning for models that support it", Sources: src("thinking", "MASCOT_THINKING")},

		// Agent Configuration
		&cli.StringFlag{Name: "prompt", Value: DefaultPrompt, Usage: "system instruction describing assistant behavior and tool policy", Sources: src("prompt", "MASCOT_PROMPT")},
		&cli.StringFlag{Name: "savedir", Value: defaultSaveDir(), Usage: "directory the assistant is told to save files under", Sources: src("savedir", "MASCOT_SAVEDIR")},
		&cli.IntFlag{Name: "maxroundtrips", Aliases: []string{"r"}, Value: 50, Usage: "maximum model/tool round-trips per turn", Sources: src("maxroundtrips", "MASCOT_MAXROUNDTRIPS")},
		&cli.StringFlag{Name: "thread", Usage: "conversation thread id (generated when empty)", Sources: src("thread", "MASCOT_THREAD")},

		// Tools
		&cli.StringFlag{Name: "mcpconfig", Aliases: []string{"m"}, Value: "mcp_config.json", Usage: "MCP server configuration file (mcpServers format)", Sources: src("mcpconfig", "MASCOT_MCPCONFIG")},
		&cli.StringSliceFlag{Name: "tool", Usage: "extra tools to load (shell scripts or MCP server JSON files)", Sources: src("tool", "MASCOT_TOOL")},
		&cli.DurationFlag{Name: "tooltimeout", Value: time.Minute * 2, Usage: "timeout for each tool invocation", Sources: src("tooltimeout", "MASCOT_TOOLTIMEOUT")},

		// Shell
		&cli.StringFlag{Name: "shell", Value: ShellTerminal, Usage: "front end to run: terminal or irc", Sources: src("shell", "MASCOT_SHELL")},
		&cli.StringFlag{Name: "greeting", Value: "hello! ask me anything.", Usage: "text shown once the assistant is ready", Sources: src("greeting", "MASCOT_GREETING")},
		&cli.IntFlag{Name: "chunkmax", Value: 350, Usage: "maximum number of characters to send as a single message", Sources: src("chunkmax", "MASCOT_CHUNKMAX")},
		&cli.BoolFlag{Name: "showtoolactions", Value: true, Usage: "show '[calling toolname]' notices when executing tools", Sources: src("showtoolactions", "MASCOT_SHOWTOOLACTIONS")},
		&cli.StringSliceFlag{Name: "admins", Aliases: []string{"A"}, Usage: "comma-separated list of allowed hostmasks to administrate the irc shell", Sources: src("admins", "MASCOT_ADMINS")},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "enable verbose logging of turns and configuration", Sources: src("verbose", "MASCOT_VERBOSE")},

		// IRC Client Configuration
		&cli.StringFlag{Name: "nick", Aliases: []string{"n"}, Value: "mascot", Usage: "nickname on the irc server", Sources: src("nick", "MASCOT_NICK")},
		&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Value: "localhost", Usage: "irc server address", Sources: src("server", "MASCOT_SERVER")},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 6667, Usage: "irc server port", Sources: src("port", "MASCOT_PORT")},
		&cli.StringFlag{Name: "channel", Aliases: []string{"c"}, Usage: "irc channel to join", Sources: src("channel", "MASCOT_CHANNEL")},
		&cli.BoolFlag{Name: "tls", Aliases: []string{"e"}, Usage: "enable TLS for the IRC connection", Sources: src("tls", "MASCOT_TLS")},
		&cli.BoolFlag{Name: "tlsinsecure", Usage: "skip TLS certificate verification", Sources: src("tlsinsecure", "MASCOT_TLSINSECURE")},
		&cli.StringFlag{Name: "saslnick", Usage: "nick used for SASL", Sources: src("saslnick", "MASCOT_SASLNICK")},
		&cli.StringFlag{Name: "saslpass", Usage: "password for SASL plain", Sources: src("saslpass", "MASCOT_SASLPASS")},
	}
}

func defaultSaveDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + string(os.PathSeparator) + "mascot"
	}
	return "mascot"
}

func getConfigPath(args []string) string {
	// Check env first
	if v := os.Getenv("MASCOT_CONFIG"); v != "" {
		return v
	}
	for i, arg := range args {
		if arg == "--config" || arg == "-b" {
			if i+1 < len(args) {
				return args[i+1]
			}
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

// SystemPrompt returns the prompt with the save directory substituted.
func (c *Configuration) SystemPrompt() string {
	return strings.ReplaceAll(c.Agent.Prompt, "{{savedir}}", c.Agent.SaveDir)
}

// Validate checks the settings that would otherwise fail deep inside a turn.
func (c *Configuration) Validate() error {
	provider, model, ok := strings.Cut(c.Model.Model, "/")
	if !ok || provider == "" || model == "" {
		return fmt.Errorf("model %q must be in provider/model form", c.Model.Model)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range [0, 2]", c.Model.Temperature)
	}
	if c.Agent.MaxRoundTrips <= 0 {
		return fmt.Errorf("maxroundtrips must be positive, got %d", c.Agent.MaxRoundTrips)
	}
	switch c.Shell.Kind {
	case ShellTerminal:
	case ShellIRC:
		if c.Server.Channel == "" {
			return fmt.Errorf("irc shell requires a channel")
		}
	default:
		return fmt.Errorf("unknown shell %q", c.Shell.Kind)
	}
	return nil
}

func maskSecret(s string) string {
	if len(s) > 3 {
		return strings.Repeat("*", len(s)-3) + s[len(s)-3:]
	}
	return s
}

// PrintConfig writes the effective configuration to stdout with secrets masked.
func (c *Configuration) PrintConfig() {
	c.WriteConfig(os.Stdout)
}

func (c *Configuration) WriteConfig(w io.Writer) {
	fmt.Fprintf(w, "shell: %s\n", c.Shell.Kind)
	fmt.Fprintf(w, "greeting: %s\n", c.Shell.Greeting)
	fmt.Fprintf(w, "admins: %v\n", c.Shell.Admins)
	fmt.Fprintf(w, "chunkmax: %d\n", c.Shell.ChunkMax)
	fmt.Fprintf(w, "showtoolactions: %t\n", c.Shell.ShowToolActions)
	fmt.Fprintf(w, "verbose: %t\n", c.Shell.Verbose)
	if c.Shell.Kind == ShellIRC {
		fmt.Fprintf(w, "nick: %s\n", c.Server.Nick)
		fmt.Fprintf(w, "server: %s\n", c.Server.Server)
		fmt.Fprintf(w, "port: %d\n", c.Server.Port)
		fmt.Fprintf(w, "channel: %s\n", c.Server.Channel)
		fmt.Fprintf(w, "tls: %t\n", c.Server.SSL)
		fmt.Fprintf(w, "tlsinsecure: %t\n", c.Server.TLSInsecure)
		fmt.Fprintf(w, "saslnick: %s\n", c.Server.SASLNick)
		fmt.Fprintf(w, "saslpass: %s\n", maskSecret(c.Server.SASLPass))
	}
	fmt.Fprintf(w, "thread: %s\n", c.Agent.ThreadID)
	fmt.Fprintf(w, "maxroundtrips: %d\n", c.Agent.MaxRoundTrips)
	fmt.Fprintf(w, "savedir: %s\n", c.Agent.SaveDir)
	fmt.Fprintf(w, "mcpconfig: %s\n", c.Tools.MCPConfig)
	fmt.Fprintf(w, "tool: %v\n", c.Tools.Specs)
	fmt.Fprintf(w, "tooltimeout: %s\n", c.Tools.Timeout)
	fmt.Fprintf(w, "apitimeout: %s\n", c.API.Timeout)
	fmt.Fprintf(w, "geminikey: %s\n", maskSecret(c.API.GeminiKey))
	fmt.Fprintf(w, "openaikey: %s\n", maskSecret(c.API.OpenAIKey))
	fmt.Fprintf(w, "anthropickey: %s\n", maskSecret(c.API.AnthropicKey))
	fmt.Fprintf(w, "ollamakey: %s\n", maskSecret(c.API.OllamaKey))
	fmt.Fprintf(w, "openaiurl: %s\n", c.API.OpenAIURL)
	fmt.Fprintf(w, "ollamaurl: %s\n", c.API.OllamaURL)
	fmt.Fprintf(w, "model: %s\n", c.Model.Model)
	fmt.Fprintf(w, "temperature: %f\n", c.Model.Temperature)
	fmt.Fprintf(w, "maxtokens: %d\n", c.Model.MaxTokens)
	fmt.Fprintf(w, "thinking: %t\n", c.Model.Thinking)
	fmt.Fprintf(w, "prompt: %s\n", c.SystemPrompt())
}

func NewConfiguration(c *cli.Command) *Configuration {
	if c.IsSet("config") {
		slog.Info("using config file", "path", c.String("config"))
	}

	threadID := c.String("thread")
	if threadID == "" {
		threadID = uuid.NewString()
	}

	return &Configuration{
		Shell: &ShellConfig{
			Kind:            strings.ToLower(c.String("shell")),
			Greeting:        c.String("greeting"),
			Admins:          c.StringSlice("admins"),
			ChunkMax:        c.Int("chunkmax"),
			ShowToolActions: c.Bool("showtoolactions"),
			Verbose:         c.Bool("verbose"),
		},
		Server: &ServerConfig{
			Nick:        c.String("nick"),
			Server:      c.String("server"),
			Port:        c.Int("port"),
			Channel:     c.String("channel"),
			SSL:         c.Bool("tls"),
			TLSInsecure: c.Bool("tlsinsecure"),
			SASLNick:    c.String("saslnick"),
			SASLPass:    c.String("saslpass"),
		},
		Agent: &AgentConfig{
			Prompt:        c.String("prompt"),
			SaveDir:       c.String("savedir"),
			MaxRoundTrips: c.Int("maxroundtrips"),
			ThreadID:      threadID,
		},
		Model: &ModelConfig{
			Model:       c.String("model"),
			MaxTokens:   c.Int("maxtokens"),
			Temperature: float32(c.Float("temperature")),
			Thinking:    c.Bool("thinking"),
		},
		Tools: &ToolsConfig{
			MCPConfig: c.String("mcpconfig"),
			Specs:     c.StringSlice("tool"),
			Timeout:   c.Duration("tooltimeout"),
		},
		API: &APIConfig{
			Timeout:      c.Duration("apitimeout"),
			OpenAIKey:    c.String("openaikey"),
			OpenAIURL:    c.String("openaiurl"),
			AnthropicKey: c.String("anthropickey"),
			GeminiKey:    c.String("geminikey"),
			OllamaURL:    c.String("ollamaurl"),
			OllamaKey:    c.String("ollamakey"),
		},
	}
}
