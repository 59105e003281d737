package testing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/jsonschema-go/jsonschema"

	"pkdindustries/mascot/internal/agent"
	"pkdindustries/mascot/internal/tools"
)

// ErrScriptExhausted is returned when a ScriptedGateway runs out of replies.
var ErrScriptExhausted = errors.New("scripted gateway: no more replies")

// Step is one scripted model response.
type Step struct {
	Reply agent.Message
	Err   error
}

// ScriptedGateway implements agent.Gateway by replaying fixed steps.
// Every call records the history and tools it was given.
type ScriptedGateway struct {
	mu        sync.Mutex
	steps     []Step
	Repeat    *Step
	Histories [][]agent.Message
	Tools     [][]tools.Descriptor

	// Block, when set, is waited on before answering.
	Block chan struct{}
}

var _ agent.Gateway = (*ScriptedGateway)(nil)

func NewScriptedGateway(steps ...Step) *ScriptedGateway {
	return &ScriptedGateway{steps: steps}
}

// Answer scripts a plain text reply.
func Answer(text string) Step {
	return Step{Reply: agent.AssistantMessage(text)}
}

// CallTools scripts a reply that requests the given calls.
func CallTools(calls ...agent.ToolCall) Step {
	return Step{Reply: agent.AssistantMessage("", calls...)}
}

// Fail scripts a gateway error.
func Fail(err error) Step {
	return Step{Err: err}
}

func (g *ScriptedGateway) Generate(ctx context.Context, history []agent.Message, descriptors []tools.Descriptor) (agent.Message, error) {
	if g.Block != nil {
		select {
		case <-g.Block:
		case <-ctx.Done():
			return agent.Message{}, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.Histories = append(g.Histories, agent.CloneMessages(history))
	g.Tools = append(g.Tools, append([]tools.Descriptor(nil), descriptors...))

	var step Step
	switch {
	case len(g.steps) > 0:
		step, g.steps = g.steps[0], g.steps[1:]
	case g.Repeat != nil:
		step = *g.Repeat
	default:
		return agent.Message{}, ErrScriptExhausted
	}
	if step.Err != nil {
		return agent.Message{}, step.Err
	}
	return agent.CloneMessage(step.Reply), nil
}

// Calls returns how many times Generate was invoked.
func (g *ScriptedGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Histories)
}

// FakeTool is a pollytool tool backed by a function.
type FakeTool struct {
	Name        string
	Description string
	Source      string
	Params      map[string]string
	Required    []string
	Run         func(ctx context.Context, args map[string]any) (string, error)

	calls atomic.Int32
	mu    sync.Mutex
	args  []map[string]any
}

func (f *FakeTool) GetName() string   { return f.Name }
func (f *FakeTool) GetType() string   { return "native" }
func (f *FakeTool) GetSource() string { return f.Source }

func (f *FakeTool) GetSchema() *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(f.Params))
	for name, typ := range f.Params {
		props[name] = &jsonschema.Schema{Type: typ}
	}
	return &jsonschema.Schema{
		Title:       f.Name,
		Description: f.Description,
		Type:        "object",
		Properties:  props,
		Required:    f.Required,
	}
}

func (f *FakeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.args = append(f.args, args)
	f.mu.Unlock()
	if f.Run != nil {
		return f.Run(ctx, args)
	}
	return "ok", nil
}

// Calls returns how many times the tool ran.
func (f *FakeTool) Calls() int {
	return int(f.calls.Load())
}

// Args returns the arguments of every invocation, in order.
func (f *FakeTool) Args() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.args...)
}
