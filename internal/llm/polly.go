package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/alexschlessinger/pollytool/llm"
	"github.com/alexschlessinger/pollytool/messages"
	pollytools "github.com/alexschlessinger/pollytool/tools"

	"pkdindustries/mascot/internal/agent"
	"pkdindustries/mascot/internal/config"
	"pkdindustries/mascot/internal/core"
	"pkdindustries/mascot/internal/tools"
)

// ErrEmptyResponse is returned when the provider stream ends without a message.
var ErrEmptyResponse = errors.New("provider returned no message")

// PollyGateway wraps pollytool's MultiPass to implement agent.Gateway.
type PollyGateway struct {
	client          llm.LLM
	streamProcessor *messages.StreamProcessor
	cfg             *config.Configuration
	systemPrompt    string
	logger          *slog.Logger
}

var _ agent.Gateway = (*PollyGateway)(nil)

// NewPollyGateway creates a gateway for the configured provider/model.
func NewPollyGateway(cfg *config.Configuration) *PollyGateway {
	// Map API keys to pollytool's expected format
	apiKeys := map[string]string{
		"openai":    cfg.API.OpenAIKey,
		"anthropic": cfg.API.AnthropicKey,
		"gemini":    cfg.API.GeminiKey,
		"ollama":    cfg.API.OllamaKey,
	}

	return &PollyGateway{
		client:          llm.NewMultiPass(apiKeys),
		streamProcessor: messages.NewStreamProcessor(),
		cfg:             cfg,
		systemPrompt:    cfg.SystemPrompt(),
		logger:          core.GetLogger().With("model", cfg.Model.Model),
	}
}

// Model returns the configured provider/model identifier.
func (g *PollyGateway) Model() string {
	return g.cfg.Model.Model
}

// Generate sends the history and the full tool set to the provider and
// returns the assistant's next message.
func (g *PollyGateway) Generate(ctx context.Context, history []agent.Message, descriptors []tools.Descriptor) (agent.Message, error) {
	req := g.newRequest(history, descriptors)
	start := time.Now()
	defer core.LogDuration(g.logger, "model_generate", start)

	collector := &responseCollector{logger: g.logger}
	events := g.client.ChatCompletionStream(ctx, req, g.streamProcessor)
	messages.ProcessEventStream(ctx, events, collector)

	if err := collector.result(ctx); err != nil {
		return agent.Message{}, &agent.ModelUnavailableError{Model: g.cfg.Model.Model, Err: err}
	}

	msg := fromPolly(*collector.message)
	g.logger.Debug("model response",
		"content_size", len(msg.Content),
		"tool_calls", len(msg.ToolCalls),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return msg, nil
}

// newRequest builds a fresh request per call; MultiPass strips the
// provider prefix from the model name in place.
func (g *PollyGateway) newRequest(history []agent.Message, descriptors []tools.Descriptor) *llm.CompletionRequest {
	msgs := make([]messages.ChatMessage, 0, len(history)+1)
	if g.systemPrompt != "" {
		msgs = append(msgs, messages.ChatMessage{
			Role:    messages.MessageRoleSystem,
			Content: g.systemPrompt,
		})
	}
	for _, m := range history {
		msgs = append(msgs, toPolly(m))
	}

	bound := make([]pollytools.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		if t := d.Tool(); t != nil {
			bound = append(bound, t)
		}
	}

	req := &llm.CompletionRequest{
		BaseURL:     g.cfg.API.OpenAIURL,
		Timeout:     g.cfg.API.Timeout,
		Model:       g.cfg.Model.Model,
		MaxTokens:   g.cfg.Model.MaxTokens,
		Messages:    msgs,
		Temperature: g.cfg.Model.Temperature,
		Tools:       bound,
	}
	if strings.HasPrefix(g.cfg.Model.Model, "ollama/") && g.cfg.API.OllamaURL != "" {
		req.BaseURL = g.cfg.API.OllamaURL
	}
	if g.cfg.Model.Thinking {
		req.ThinkingEffort = "medium"
	}
	return req
}

// responseCollector receives stream events and keeps the completed message.
type responseCollector struct {
	logger  *slog.Logger
	message *messages.ChatMessage
	err     error
}

var _ messages.EventProcessor = (*responseCollector)(nil)

func (c *responseCollector) OnReasoning(content string, totalLength int) {
	c.logger.Debug("reasoning update", "size", totalLength)
}

func (c *responseCollector) OnContent(content string, firstChunk bool) {}

func (c *responseCollector) OnToolCall(toolCall messages.ChatMessageToolCall) {
	c.logger.Debug("received tool call", "tool", toolCall.Name, "call_id", toolCall.ID)
}

func (c *responseCollector) OnComplete(message *messages.ChatMessage) {
	if message != nil {
		m := *message
		c.message = &m
	}
}

func (c *responseCollector) OnError(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

func (c *responseCollector) GetResponse() messages.ChatMessage {
	if c.message == nil {
		return messages.ChatMessage{}
	}
	return *c.message
}

func (c *responseCollector) result(ctx context.Context) error {
	switch {
	case c.err != nil:
		return c.err
	case c.message != nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return ErrEmptyResponse
	}
}
