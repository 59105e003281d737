package testing

import (
	"time"

	"pkdindustries/mascot/internal/config"
)

// DefaultTestConfig returns a minimal configuration for testing
func DefaultTestConfig() *config.Configuration {
	return &config.Configuration{
		Shell: &config.ShellConfig{
			Kind:            config.ShellTerminal,
			Greeting:        "hello",
			Admins:          []string{},
			ChunkMax:        350,
			ShowToolActions: false,
			Verbose:         false,
		},
		Server: &config.ServerConfig{
			Nick:    "testbot",
			Server:  "irc.test.local",
			Port:    6667,
			Channel: "#test",
			SSL:     false,
		},
		Agent: &config.AgentConfig{
			Prompt:        "You are a test assistant. Save files under {{savedir}}.",
			SaveDir:       "/tmp/mascot-test",
			MaxRoundTrips: 5,
			ThreadID:      "test-thread",
		},
		Model: &config.ModelConfig{
			Model:       "test/model",
			MaxTokens:   100,
			Temperature: 0.001,
			Thinking:    false,
		},
		Tools: &config.ToolsConfig{
			Timeout: time.Second * 5,
		},
		API: &config.APIConfig{
			Timeout: time.Second * 30,
		},
	}
}
