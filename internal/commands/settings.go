package commands

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"pkdindustries/mascot/internal/config"
)

// setting is one named view onto the configuration. Settings without a
// write func were consumed when the agent loop was built and stay fixed.
type setting struct {
	name  string
	read  func(*config.Configuration) string
	write func(*config.Configuration, string) error
}

func (s setting) writable() bool { return s.write != nil }

// settings is kept sorted by name.
var settings = []setting{
	{name: "anthropickey", read: func(c *config.Configuration) string { return maskAPIKey(c.API.AnthropicKey) }},
	{name: "apitimeout", read: func(c *config.Configuration) string { return c.API.Timeout.String() }},
	{
		name: "chunkmax",
		read: func(c *config.Configuration) string { return strconv.Itoa(c.Shell.ChunkMax) },
		write: func(c *config.Configuration, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("chunkmax wants a positive number of characters, got %q", v)
			}
			c.Shell.ChunkMax = n
			return nil
		},
	},
	{name: "geminikey", read: func(c *config.Configuration) string { return maskAPIKey(c.API.GeminiKey) }},
	{
		name:  "greeting",
		read:  func(c *config.Configuration) string { return c.Shell.Greeting },
		write: func(c *config.Configuration, v string) error { c.Shell.Greeting = v; return nil },
	},
	{name: "maxroundtrips", read: func(c *config.Configuration) string { return strconv.Itoa(c.Agent.MaxRoundTrips) }},
	{name: "maxtokens", read: func(c *config.Configuration) string { return strconv.Itoa(c.Model.MaxTokens) }},
	{name: "mcpconfig", read: func(c *config.Configuration) string { return c.Tools.MCPConfig }},
	{name: "model", read: func(c *config.Configuration) string { return c.Model.Model }},
	{name: "ollamakey", read: func(c *config.Configuration) string { return maskAPIKey(c.API.OllamaKey) }},
	{name: "ollamaurl", read: func(c *config.Configuration) string { return c.API.OllamaURL }},
	{name: "openaikey", read: func(c *config.Configuration) string { return maskAPIKey(c.API.OpenAIKey) }},
	{name: "openaiurl", read: func(c *config.Configuration) string { return c.API.OpenAIURL }},
	{name: "savedir", read: func(c *config.Configuration) string { return c.Agent.SaveDir }},
	{
		name:  "showtoolactions",
		read:  func(c *config.Configuration) string { return strconv.FormatBool(c.Shell.ShowToolActions) },
		write: boolSetting("showtoolactions", func(c *config.Configuration, b bool) { c.Shell.ShowToolActions = b }),
	},
	{name: "temperature", read: func(c *config.Configuration) string { return strconv.FormatFloat(float64(c.Model.Temperature), 'g', -1, 32) }},
	{name: "thinking", read: func(c *config.Configuration) string { return strconv.FormatBool(c.Model.Thinking) }},
	{name: "thread", read: func(c *config.Configuration) string { return c.Agent.ThreadID }},
	{name: "tooltimeout", read: func(c *config.Configuration) string { return c.Tools.Timeout.String() }},
	{
		name:  "verbose",
		read:  func(c *config.Configuration) string { return strconv.FormatBool(c.Shell.Verbose) },
		write: boolSetting("verbose", func(c *config.Configuration, b bool) { c.Shell.Verbose = b }),
	},
}

func boolSetting(name string, apply func(*config.Configuration, bool)) func(*config.Configuration, string) error {
	return func(c *config.Configuration, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s wants true or false, got %q", name, v)
		}
		apply(c, b)
		return nil
	}
}

func lookupSetting(name string) (setting, bool) {
	i, ok := slices.BinarySearchFunc(settings, name, func(s setting, n string) int {
		return strings.Compare(s.name, n)
	})
	if !ok {
		return setting{}, false
	}
	return settings[i], true
}

func settingNames(writableOnly bool) string {
	var names []string
	for _, s := range settings {
		if writableOnly && !s.writable() {
			continue
		}
		names = append(names, s.name)
	}
	return strings.Join(names, ", ")
}

// maskAPIKey shows only the first 4 characters of a credential.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-4)
}

// GetCommand shows one setting, or all of them.
type GetCommand struct{}

func (c *GetCommand) Name() string    { return "/get" }
func (c *GetCommand) AdminOnly() bool { return false }

func (c *GetCommand) Execute(ctx Context) {
	cfg := ctx.GetConfig()
	args := ctx.GetArgs()

	if len(args) < 2 {
		pairs := make([]string, len(settings))
		for i, s := range settings {
			pairs[i] = s.name + "=" + s.read(cfg)
		}
		ctx.Reply(strings.Join(pairs, " "))
		return
	}

	s, ok := lookupSetting(args[1])
	if !ok {
		ctx.Reply(fmt.Sprintf("No setting called %s. Known settings: %s", args[1], settingNames(false)))
		return
	}
	ctx.Reply(s.name + ": " + s.read(cfg))
}

// SetCommand changes a shell-level setting for the rest of the session.
type SetCommand struct{}

func (c *SetCommand) Name() string    { return "/set" }
func (c *SetCommand) AdminOnly() bool { return true }

func (c *SetCommand) Execute(ctx Context) {
	args := ctx.GetArgs()
	if len(args) < 3 {
		ctx.Reply("Usage: /set <setting> <value>. Changeable: " + settingNames(true))
		return
	}

	name, value := args[1], strings.Join(args[2:], " ")
	cfg := ctx.GetConfig()

	s, ok := lookupSetting(name)
	switch {
	case !ok:
		ctx.Reply(fmt.Sprintf("No setting called %s. Changeable: %s", name, settingNames(true)))
		return
	case !s.writable():
		ctx.Reply(fmt.Sprintf("%s is fixed for this session. Changeable: %s", name, settingNames(true)))
		return
	}

	if err := s.write(cfg, value); err != nil {
		ctx.Reply(err.Error())
		return
	}
	ctx.GetLogger().Info("setting changed", "setting", name, "value", s.read(cfg))
	ctx.Reply(fmt.Sprintf("%s is now %s", name, s.read(cfg)))
}
