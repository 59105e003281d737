package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"pkdindustries/mascot/internal/core"
	"pkdindustries/mascot/internal/tools"
)

// DefaultMaxRoundTrips bounds a turn when no cap is configured.
const DefaultMaxRoundTrips = 50

// State is a node of the turn state machine.
type State int

const (
	StateAwaitingModel State = iota
	StateExecutingTools
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateExecutingTools:
		return "EXECUTING_TOOLS"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the turn has ended.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Hooks observe a turn in progress. Any of them may be nil. Each receives
// the context the turn was started with.
type Hooks struct {
	OnModelCall   func(ctx context.Context, roundTrip int)
	OnToolCall    func(ctx context.Context, call ToolCall)
	OnToolResult  func(ctx context.Context, call ToolCall, output string, err error)
	OnStateChange func(ctx context.Context, from, to State)
}

// Config tunes a Loop.
type Config struct {
	ThreadID      string
	MaxRoundTrips int
	Hooks         Hooks
	Logger        *slog.Logger
	Verbose       bool
}

// Result is the outcome of one turn.
type Result struct {
	State State
	// Reply is the final assistant content when State is StateDone.
	Reply string
	// Err is set when State is StateFailed.
	Err error
	// RoundTrips counts gateway calls made during the turn.
	RoundTrips int
	// Appended counts messages added to the thread, including the user message.
	Appended int
}

// Loop runs turns of the reason-act cycle against one conversation thread.
type Loop struct {
	gateway     Gateway
	invoker     ToolInvoker
	store       Store
	descriptors []tools.Descriptor
	cfg         Config
	logger      *slog.Logger
}

// NewLoop binds the collaborators for a thread. The tool set is captured
// once here and passed unchanged to every gateway call.
func NewLoop(gateway Gateway, invoker ToolInvoker, store Store, cfg Config) (*Loop, error) {
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if invoker == nil {
		return nil, errors.New("tool invoker is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.ThreadID == "" {
		return nil, errors.New("thread id is required")
	}
	if cfg.MaxRoundTrips <= 0 {
		cfg.MaxRoundTrips = DefaultMaxRoundTrips
	}
	logger := cfg.Logger
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Loop{
		gateway:     gateway,
		invoker:     invoker,
		store:       store,
		descriptors: invoker.ListTools(),
		cfg:         cfg,
		logger:      logger.With("thread_id", cfg.ThreadID),
	}, nil
}

// ThreadID returns the thread this loop appends to.
func (l *Loop) ThreadID() string {
	return l.cfg.ThreadID
}

// Tools returns the descriptors bound to every gateway call.
func (l *Loop) Tools() []tools.Descriptor {
	return slices.Clone(l.descriptors)
}

// turn carries the mutable state of a single Run.
type turn struct {
	ctx      context.Context
	state    State
	result   Result
	pending  Message
	loop     *Loop
	started  time.Time
	overflow bool
}

// Run appends text as a user message and drives the state machine until
// the turn is DONE or FAILED. The returned error equals Result.Err.
func (l *Loop) Run(ctx context.Context, text string) (Result, error) {
	t := &turn{ctx: ctx, loop: l, state: StateAwaitingModel, started: time.Now()}

	if err := t.append(UserMessage(text)); err != nil {
		t.fail(err)
		t.result.State = t.state
		return t.result, t.result.Err
	}
	l.logger.Info("turn started", "input", core.Preview(text, l.cfg.Verbose))

	for !t.state.Terminal() {
		switch t.state {
		case StateAwaitingModel:
			t.awaitModel(ctx)
		case StateExecutingTools:
			t.executeTools(ctx)
		}
	}

	t.result.State = t.state
	if t.state == StateDone {
		l.logger.Info("turn completed",
			"round_trips", t.result.RoundTrips,
			"appended", t.result.Appended,
			"duration_ms", time.Since(t.started).Milliseconds(),
		)
	} else {
		l.logger.Warn("turn failed",
			"error", t.result.Err,
			"round_trips", t.result.RoundTrips,
			"appended", t.result.Appended,
		)
	}
	return t.result, t.result.Err
}

func (t *turn) awaitModel(ctx context.Context) {
	l := t.loop
	t.result.RoundTrips++
	roundTrip := t.result.RoundTrips
	if l.cfg.Hooks.OnModelCall != nil {
		l.cfg.Hooks.OnModelCall(ctx, roundTrip)
	}

	start := time.Now()
	history := l.store.History(l.cfg.ThreadID)
	reply, err := l.gateway.Generate(ctx, history, slices.Clone(l.descriptors))
	if err != nil {
		l.logger.Error("model call failed", "round_trip", roundTrip, "error", err)
		t.fail(asModelUnavailable(err))
		return
	}
	l.logger.Debug("model replied",
		"round_trip", roundTrip,
		"tool_calls", len(reply.ToolCalls),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	reply.Role = RoleAssistant
	reply.ToolCallID = ""
	reply.ToolCalls = normalizeCallIDs(reply.ToolCalls, roundTrip)
	if err := t.append(reply); err != nil {
		t.fail(err)
		return
	}

	if !reply.HasToolCalls() {
		t.result.Reply = reply.Content
		t.transition(StateDone)
		return
	}

	t.pending = reply
	t.overflow = roundTrip > l.cfg.MaxRoundTrips
	t.transition(StateExecutingTools)
}

func (t *turn) executeTools(ctx context.Context) {
	l := t.loop
	calls := t.pending.ToolCalls
	t.pending = Message{}

	if t.overflow {
		// The over-limit calls still get answers so the thread stays well formed.
		for _, call := range calls {
			msg := ToolResultMessage(call, fmt.Sprintf("Not executed: round-trip limit of %d reached", l.cfg.MaxRoundTrips))
			if err := t.append(msg); err != nil {
				t.fail(err)
				return
			}
		}
		t.fail(fmt.Errorf("%w: %d round-trips", ErrRecursionLimitExceeded, l.cfg.MaxRoundTrips))
		return
	}

	for _, call := range calls {
		output, err := l.invoke(ctx, call)
		if l.cfg.Hooks.OnToolResult != nil {
			l.cfg.Hooks.OnToolResult(ctx, call, output, err)
		}
		if err := t.append(ToolResultMessage(call, toolResultContent(call, output, err))); err != nil {
			t.fail(err)
			return
		}
	}
	t.transition(StateAwaitingModel)
}

func (l *Loop) invoke(ctx context.Context, call ToolCall) (string, error) {
	if call.ArgumentsError != "" {
		return "", &argumentsError{msg: call.ArgumentsError}
	}
	if l.cfg.Hooks.OnToolCall != nil {
		l.cfg.Hooks.OnToolCall(ctx, call)
	}

	logger := core.WithTool(l.logger, call.Name, call.Arguments)
	logger.Info("executing tool", "call_id", call.ID)
	start := time.Now()
	output, err := l.invoker.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		logger.Error("tool execution failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", err
	}
	logger.Info("tool execution completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"result_size", len(output),
		"output", core.Preview(output, l.cfg.Verbose),
	)
	return output, nil
}

type argumentsError struct {
	msg string
}

func (e *argumentsError) Error() string {
	return e.msg
}

// toolResultContent renders a tool outcome as the text the model sees.
func toolResultContent(call ToolCall, output string, err error) string {
	var argErr *argumentsError
	switch {
	case err == nil:
		return output
	case errors.As(err, &argErr):
		return fmt.Sprintf("Error parsing arguments: %s", argErr.msg)
	case errors.Is(err, tools.ErrToolNotFound):
		return fmt.Sprintf("Tool not found: %s", call.Name)
	default:
		var invErr *tools.ToolInvocationError
		if errors.As(err, &invErr) {
			err = invErr.Err
		}
		return fmt.Sprintf("Error: %v", err)
	}
}

// normalizeCallIDs fills in missing or repeated call ids so every call in
// the message can be answered unambiguously.
func normalizeCallIDs(calls []ToolCall, roundTrip int) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	// Provider ids are reserved up front so a generated id never collides
	// with one that appears later in the same message.
	taken := make(map[string]struct{}, len(calls))
	for _, call := range calls {
		if call.ID != "" {
			taken[call.ID] = struct{}{}
		}
	}
	out := make([]ToolCall, len(calls))
	kept := make(map[string]struct{}, len(calls))
	for i, call := range calls {
		call = CloneToolCall(call)
		if _, dup := kept[call.ID]; call.ID == "" || dup {
			call.ID = fmt.Sprintf("call_%d_%d", roundTrip, i)
			for n := 1; ; n++ {
				if _, used := taken[call.ID]; !used {
					break
				}
				call.ID = fmt.Sprintf("call_%d_%d_%d", roundTrip, i, n)
			}
			taken[call.ID] = struct{}{}
		}
		kept[call.ID] = struct{}{}
		out[i] = call
	}
	return out
}

func (t *turn) append(msg Message) error {
	l := t.loop
	if err := l.store.Append(l.cfg.ThreadID, msg); err != nil {
		return fmt.Errorf("appending %s message: %w", msg.Role, err)
	}
	t.result.Appended++
	return nil
}

func (t *turn) transition(to State) {
	from := t.state
	t.state = to
	t.loop.logger.Debug("state change", "from", from.String(), "to", to.String(), "round_trip", t.result.RoundTrips)
	if hook := t.loop.cfg.Hooks.OnStateChange; hook != nil {
		hook(t.ctx, from, to)
	}
}

func (t *turn) fail(err error) {
	t.result.Err = err
	t.result.Reply = ""
	t.transition(StateFailed)
}
