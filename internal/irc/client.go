package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/lrstanley/girc"

	"pkdindustries/mascot/internal/commands"
	"pkdindustries/mascot/internal/companion"
	"pkdindustries/mascot/internal/config"
	"pkdindustries/mascot/internal/core"
)

const (
	maxRetries = 5
	retryDelay = 5 * time.Second
)

// NewClient builds an unconnected girc client from the server settings.
func NewClient(cfg *config.Configuration) *girc.Client {
	client := girc.New(girc.Config{
		Server:    cfg.Server.Server,
		Port:      cfg.Server.Port,
		Nick:      cfg.Server.Nick,
		User:      "mascot",
		Name:      "mascot",
		SSL:       cfg.Server.SSL,
		TLSConfig: &tls.Config{InsecureSkipVerify: cfg.Server.TLSInsecure},
	})

	if cfg.Server.SASLNick != "" && cfg.Server.SASLPass != "" {
		client.Config.SASL = &girc.SASLPlain{
			User: cfg.Server.SASLNick,
			Pass: cfg.Server.SASLPass,
		}
	}
	return client
}

// Handler routes IRC events to the command registry.
type Handler struct {
	cfg       *config.Configuration
	assistant companion.Assistant
	registry  *commands.Registry
}

func NewHandler(cfg *config.Configuration, assistant companion.Assistant, registry *commands.Registry) *Handler {
	return &Handler{cfg: cfg, assistant: assistant, registry: registry}
}

// HandleJoin greets the channel once the client itself has joined.
func (h *Handler) HandleJoin(sender Sender, nick string, e girc.Event) {
	if e.Source == nil || e.Source.Name != nick || len(e.Params) == 0 {
		return
	}
	greeting := h.cfg.Shell.Greeting
	if !h.assistant.Ready() {
		greeting = companion.StatusPreparing
	}
	for _, chunk := range Chunk(greeting, h.cfg.Shell.ChunkMax) {
		sender.Message(e.Params[0], chunk)
	}
}

// HandleMessage dispatches a PRIVMSG that is addressed to the assistant.
// It reports whether the message was handled.
func (h *Handler) HandleMessage(ctx context.Context, sender Sender, nick string, e girc.Event) bool {
	chat, cancel := NewChatContext(ctx, h.cfg, h.assistant, sender, nick, e)
	defer cancel()

	if !chat.Valid() {
		return false
	}
	chat.GetLogger().Info(">> " + chat.GetText())
	return h.registry.Dispatch(chat)
}

// Run connects to the configured server and serves the channel until ctx ends.
func Run(ctx context.Context, cfg *config.Configuration, assistant companion.Assistant, registry *commands.Registry) error {
	logger := core.GetLogger()
	client := NewClient(cfg)
	handler := NewHandler(cfg, assistant, registry)

	go func() {
		<-ctx.Done()
		client.Quit("Shutting down...")
		logger.Info("irc client closed")
	}()

	client.Handlers.AddBg(girc.CONNECTED, func(client *girc.Client, e girc.Event) {
		logger.Info("joining channel", "channel", cfg.Server.Channel)
		client.Cmd.Join(cfg.Server.Channel)
	})

	client.Handlers.AddBg(girc.JOIN, func(client *girc.Client, e girc.Event) {
		handler.HandleJoin(client.Cmd, client.GetNick(), e)
	})

	client.Handlers.AddBg(girc.PRIVMSG, func(client *girc.Client, e girc.Event) {
		handler.HandleMessage(ctx, client.Cmd, client.GetNick(), e)
	})

	// Reconnect loop
	for i := range maxRetries {
		if ctx.Err() != nil {
			return nil
		}

		logger.Info("connecting to server",
			"server", client.Config.Server,
			"port", client.Config.Port,
			"tls", client.Config.SSL,
			"sasl", client.Config.SASL != nil,
		)

		if err := client.Connect(); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			logger.Error("connection failed", "error", err)
			logger.Info("reconnecting", "delay", retryDelay, "attempt", i+1, "max_attempts", maxRetries)

			select {
			case <-time.After(retryDelay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	}

	return fmt.Errorf("failed to connect after %d attempts", maxRetries)
}
