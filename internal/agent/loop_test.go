package agent_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkdindustries/mascot/internal/agent"
	"pkdindustries/mascot/internal/store"
	mocktest "pkdindustries/mascot/internal/testing"
	"pkdindustries/mascot/internal/tools"
)

const thread = "thread-1"

type fixture struct {
	gateway *mocktest.ScriptedGateway
	store   *store.Memory
	tools   map[string]*mocktest.FakeTool
	loop    *agent.Loop
}

func newFixture(t *testing.T, gateway *mocktest.ScriptedGateway, cfg agent.Config, fakes ...*mocktest.FakeTool) *fixture {
	t.Helper()
	registry, err := mocktest.NewToolRegistry(fakes...)
	require.NoError(t, err)

	cfg.ThreadID = thread
	st := store.NewMemory()
	loop, err := agent.NewLoop(gateway, registry, st, cfg)
	require.NoError(t, err)

	byName := make(map[string]*mocktest.FakeTool, len(fakes))
	for _, f := range fakes {
		byName[f.Name] = f
	}
	return &fixture{gateway: gateway, store: st, tools: byName, loop: loop}
}

func listFiles() *mocktest.FakeTool {
	return &mocktest.FakeTool{
		Name:        "list_directory",
		Description: "List a directory",
		Source:      "filesystem",
		Params:      map[string]string{"path": "string"},
		Required:    []string{"path"},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			return "[FILE] notes.txt\n[DIR] src", nil
		},
	}
}

func call(id, name string, args map[string]any) agent.ToolCall {
	return agent.ToolCall{ID: id, Name: name, Arguments: args}
}

func roles(msgs []agent.Message) []agent.Role {
	out := make([]agent.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestNewLoop_Validation(t *testing.T) {
	gateway := mocktest.NewScriptedGateway()
	registry, err := mocktest.NewToolRegistry()
	require.NoError(t, err)
	st := store.NewMemory()

	tests := []struct {
		name    string
		gateway agent.Gateway
		invoker agent.ToolInvoker
		store   agent.Store
		thread  string
		wantErr string
	}{
		{"no gateway", nil, registry, st, thread, "gateway is required"},
		{"no invoker", gateway, nil, st, thread, "tool invoker is required"},
		{"no store", gateway, registry, nil, thread, "store is required"},
		{"no thread", gateway, registry, st, "", "thread id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := agent.NewLoop(tt.gateway, tt.invoker, tt.store, agent.Config{ThreadID: tt.thread})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoop_ToolCallThenSummary(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(call("call_a", "list_directory", map[string]any{"path": "."})),
		mocktest.Answer("There is one file, notes.txt, and a src directory."),
	)
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	result, err := f.loop.Run(context.Background(), "list files in the working directory")
	require.NoError(t, err)

	assert.Equal(t, agent.StateDone, result.State)
	assert.Equal(t, "There is one file, notes.txt, and a src directory.", result.Reply)
	assert.Equal(t, 2, result.RoundTrips)
	assert.Equal(t, 4, result.Appended)

	history := f.store.History(thread)
	require.Len(t, history, 4)
	assert.Equal(t, []agent.Role{agent.RoleUser, agent.RoleAssistant, agent.RoleTool, agent.RoleAssistant}, roles(history))
	assert.Equal(t, "call_a", history[2].ToolCallID)
	assert.Equal(t, "[FILE] notes.txt\n[DIR] src", history[2].Content)

	// the second model call sees the tool result
	require.Len(t, gateway.Histories, 2)
	second := gateway.Histories[1]
	require.Len(t, second, 3)
	assert.Equal(t, agent.RoleTool, second[2].Role)

	assert.Equal(t, 1, f.tools["list_directory"].Calls())
	assert.Equal(t, []map[string]any{{"path": "."}}, f.tools["list_directory"].Args())
}

func TestLoop_PlainAnswer(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(mocktest.Answer("hello!"))
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	result, err := f.loop.Run(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, "hello!", result.Reply)
	assert.Equal(t, 1, result.RoundTrips)
	assert.Equal(t, 2, f.store.Len(thread))
	assert.Zero(t, f.tools["list_directory"].Calls())
}

func TestLoop_ToolErrorIsFedBack(t *testing.T) {
	failing := &mocktest.FakeTool{
		Name: "read_file",
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("ENOENT: no such file")
		},
	}
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(call("c1", "read_file", map[string]any{"path": "/nope"})),
		mocktest.CallTools(call("c2", "read_file", map[string]any{"path": "/nope2"})),
		mocktest.Answer("The file does not exist."),
	)
	f := newFixture(t, gateway, agent.Config{}, failing)

	result, err := f.loop.Run(context.Background(), "read /nope")
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, result.State)
	assert.Equal(t, "The file does not exist.", result.Reply)

	// each model call after a failure sees the error text
	require.Len(t, gateway.Histories, 3)
	last := gateway.Histories[1][len(gateway.Histories[1])-1]
	assert.Equal(t, agent.RoleTool, last.Role)
	assert.Equal(t, "Error: ENOENT: no such file", last.Content)
	assert.Equal(t, 2, failing.Calls())
}

func TestLoop_ModelFailureOnFirstCall(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(mocktest.Fail(errors.New("401 unauthorized")))
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	result, err := f.loop.Run(context.Background(), "hello")
	require.Error(t, err)

	assert.Equal(t, agent.StateFailed, result.State)
	assert.Empty(t, result.Reply)
	assert.ErrorIs(t, err, agent.ErrModelUnavailable)
	var mu *agent.ModelUnavailableError
	require.ErrorAs(t, err, &mu)
	assert.EqualError(t, mu.Err, "401 unauthorized")

	history := f.store.History(thread)
	require.Len(t, history, 1)
	assert.Equal(t, agent.UserMessage("hello").Content, history[0].Content)
	assert.Equal(t, agent.RoleUser, history[0].Role)
}

func TestLoop_ModelFailureMidTurnKeepsToolResults(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(call("c1", "list_directory", map[string]any{"path": "."})),
		mocktest.Fail(errors.New("connection reset")),
	)
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	_, err := f.loop.Run(context.Background(), "ls")
	require.ErrorIs(t, err, agent.ErrModelUnavailable)

	history := f.store.History(thread)
	assert.Equal(t, []agent.Role{agent.RoleUser, agent.RoleAssistant, agent.RoleTool}, roles(history))
}

func TestLoop_RoundTripCap(t *testing.T) {
	const limit = 3
	gateway := mocktest.NewScriptedGateway()
	repeat := mocktest.CallTools(call("loop", "list_directory", map[string]any{"path": "."}))
	gateway.Repeat = &repeat
	f := newFixture(t, gateway, agent.Config{MaxRoundTrips: limit}, listFiles())

	result, err := f.loop.Run(context.Background(), "never stop")
	require.Error(t, err)

	assert.ErrorIs(t, err, agent.ErrRecursionLimitExceeded)
	assert.Equal(t, agent.StateFailed, result.State)
	assert.Equal(t, limit+1, gateway.Calls())
	assert.Equal(t, limit+1, result.RoundTrips)
	assert.Equal(t, limit, f.tools["list_directory"].Calls())

	// the over-limit call is answered without running
	history := f.store.History(thread)
	last := history[len(history)-1]
	assert.Equal(t, agent.RoleTool, last.Role)
	assert.Equal(t, fmt.Sprintf("Not executed: round-trip limit of %d reached", limit), last.Content)
	assert.Empty(t, f.store.Pending(thread))
}

func TestLoop_AnswerOnLastAllowedRoundTrip(t *testing.T) {
	const limit = 2
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(call("c1", "list_directory", nil)),
		mocktest.CallTools(call("c2", "list_directory", nil)),
		mocktest.Answer("done"),
	)
	f := newFixture(t, gateway, agent.Config{MaxRoundTrips: limit}, listFiles())

	result, err := f.loop.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", result.Reply)
	assert.Equal(t, limit+1, result.RoundTrips)
}

func TestLoop_DefaultCap(t *testing.T) {
	gateway := mocktest.NewScriptedGateway()
	repeat := mocktest.CallTools(call("x", "list_directory", nil))
	gateway.Repeat = &repeat
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	_, err := f.loop.Run(context.Background(), "spin")
	require.ErrorIs(t, err, agent.ErrRecursionLimitExceeded)
	assert.Equal(t, agent.DefaultMaxRoundTrips+1, gateway.Calls())
}

func TestLoop_UnknownTool(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(call("c1", "teleport", map[string]any{"to": "mars"})),
		mocktest.Answer("I cannot do that."),
	)
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	result, err := f.loop.Run(context.Background(), "teleport me")
	require.NoError(t, err)
	assert.Equal(t, "I cannot do that.", result.Reply)

	history := f.store.History(thread)
	assert.Equal(t, "Tool not found: teleport", history[2].Content)
}

func TestLoop_MalformedArguments(t *testing.T) {
	bad := agent.ToolCall{ID: "c1", Name: "list_directory", ArgumentsError: `invalid tool arguments "{path": unexpected EOF`}
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(bad),
		mocktest.Answer("retrying failed"),
	)
	var started []agent.ToolCall
	f := newFixture(t, gateway, agent.Config{Hooks: agent.Hooks{
		OnToolCall: func(_ context.Context, c agent.ToolCall) { started = append(started, c) },
	}}, listFiles())

	_, err := f.loop.Run(context.Background(), "ls")
	require.NoError(t, err)

	assert.Zero(t, f.tools["list_directory"].Calls())
	assert.Empty(t, started)
	history := f.store.History(thread)
	assert.True(t, strings.HasPrefix(history[2].Content, "Error parsing arguments: invalid tool arguments"))
}

func TestLoop_MultipleCallsAnsweredInOrder(t *testing.T) {
	clock := &mocktest.FakeTool{Name: "clock", Run: func(ctx context.Context, args map[string]any) (string, error) {
		return "12:00", nil
	}}
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(
			call("a", "list_directory", map[string]any{"path": "/"}),
			call("b", "clock", nil),
			call("c", "list_directory", map[string]any{"path": "/tmp"}),
		),
		mocktest.Answer("ok"),
	)
	f := newFixture(t, gateway, agent.Config{}, listFiles(), clock)

	_, err := f.loop.Run(context.Background(), "do things")
	require.NoError(t, err)

	history := f.store.History(thread)
	require.Len(t, history, 6)
	assert.Equal(t, "a", history[2].ToolCallID)
	assert.Equal(t, "b", history[3].ToolCallID)
	assert.Equal(t, "12:00", history[3].Content)
	assert.Equal(t, "c", history[4].ToolCallID)
	assert.Equal(t, []map[string]any{{"path": "/"}, {"path": "/tmp"}}, f.tools["list_directory"].Args())
}

func TestLoop_NormalizesCallIDs(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(
			call("", "list_directory", nil),
			call("dup", "list_directory", nil),
			call("dup", "list_directory", nil),
		),
		mocktest.Answer("ok"),
	)
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	_, err := f.loop.Run(context.Background(), "ls")
	require.NoError(t, err)

	history := f.store.History(thread)
	ids := []string{}
	for _, c := range history[1].ToolCalls {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"call_1_0", "dup", "call_1_2"}, ids)
	for i, id := range ids {
		assert.Equal(t, id, history[2+i].ToolCallID)
	}
}

func TestLoop_GeneratedCallIDsAvoidLaterProviderIDs(t *testing.T) {
	tests := []struct {
		name  string
		calls []agent.ToolCall
		want  []string
	}{
		{
			name:  "blank after provider id",
			calls: []agent.ToolCall{call("call_1_1", "list_directory", nil), call("", "list_directory", nil)},
			want:  []string{"call_1_1", "call_1_1_1"},
		},
		{
			name:  "blank before provider id",
			calls: []agent.ToolCall{call("", "list_directory", nil), call("call_1_0", "list_directory", nil)},
			want:  []string{"call_1_0_1", "call_1_0"},
		},
		{
			name: "repeat collides with generated form",
			calls: []agent.ToolCall{
				call("x", "list_directory", nil),
				call("x", "list_directory", nil),
				call("call_1_1", "list_directory", nil),
			},
			want: []string{"x", "call_1_1_1", "call_1_1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := mocktest.NewScriptedGateway(mocktest.CallTools(tt.calls...), mocktest.Answer("ok"))
			f := newFixture(t, gateway, agent.Config{}, listFiles())

			result, err := f.loop.Run(context.Background(), "ls")
			require.NoError(t, err)
			assert.Equal(t, agent.StateDone, result.State)

			history := f.store.History(thread)
			ids := []string{}
			for _, c := range history[1].ToolCalls {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
			for i, id := range ids {
				assert.Equal(t, id, history[2+i].ToolCallID)
			}
		})
	}
}

func TestLoop_EveryResultMatchesPrecedingCall(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(call("a", "list_directory", nil), call("b", "list_directory", nil)),
		mocktest.CallTools(call("c", "teleport", nil)),
		mocktest.Answer("fine"),
	)
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	_, err := f.loop.Run(context.Background(), "go")
	require.NoError(t, err)

	var open map[string]bool
	for _, msg := range f.store.History(thread) {
		switch msg.Role {
		case agent.RoleAssistant:
			open = map[string]bool{}
			for _, c := range msg.ToolCalls {
				open[c.ID] = true
			}
		case agent.RoleTool:
			require.True(t, open[msg.ToolCallID], "result %q has no matching call", msg.ToolCallID)
			delete(open, msg.ToolCallID)
		}
	}
	assert.Empty(t, open)
}

func TestLoop_HistoryGrowsAcrossTurns(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(
		mocktest.Answer("one"),
		mocktest.Fail(errors.New("down")),
		mocktest.CallTools(call("x", "list_directory", nil)),
		mocktest.Answer("three"),
	)
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	prev := []agent.Message{}
	for _, input := range []string{"first", "second", "third"} {
		_, _ = f.loop.Run(context.Background(), input)
		history := f.store.History(thread)
		require.Greater(t, len(history), len(prev))
		assert.Equal(t, prev, history[:len(prev)])
		prev = history
	}
	assert.Len(t, prev, 7)

	// each model call sees the full prior history
	require.Len(t, gateway.Histories, 4)
	assert.Len(t, gateway.Histories[1], 3)
}

func TestLoop_BindsSameToolsEveryCall(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(call("a", "list_directory", nil)),
		mocktest.Answer("ok"),
	)
	clock := &mocktest.FakeTool{Name: "clock"}
	f := newFixture(t, gateway, agent.Config{}, listFiles(), clock)

	_, err := f.loop.Run(context.Background(), "go")
	require.NoError(t, err)

	require.Len(t, gateway.Tools, 2)
	names := func(ds []tools.Descriptor) []string {
		var out []string
		for _, d := range ds {
			out = append(out, d.Name)
		}
		return out
	}
	assert.Equal(t, []string{"clock", "list_directory"}, names(gateway.Tools[0]))
	assert.Equal(t, names(gateway.Tools[0]), names(gateway.Tools[1]))
	assert.Equal(t, names(f.loop.Tools()), names(gateway.Tools[0]))
}

func TestLoop_Hooks(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(
		mocktest.CallTools(call("a", "list_directory", map[string]any{"path": "."})),
		mocktest.Answer("ok"),
	)

	var (
		modelCalls []int
		toolCalls  []string
		results    []string
		states     []string
	)
	hooks := agent.Hooks{
		OnModelCall: func(_ context.Context, rt int) { modelCalls = append(modelCalls, rt) },
		OnToolCall:  func(_ context.Context, c agent.ToolCall) { toolCalls = append(toolCalls, c.Name) },
		OnToolResult: func(_ context.Context, c agent.ToolCall, output string, err error) {
			results = append(results, output)
		},
		OnStateChange: func(_ context.Context, from, to agent.State) {
			states = append(states, from.String()+">"+to.String())
		},
	}
	f := newFixture(t, gateway, agent.Config{Hooks: hooks}, listFiles())

	_, err := f.loop.Run(context.Background(), "ls")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, modelCalls)
	assert.Equal(t, []string{"list_directory"}, toolCalls)
	assert.Equal(t, []string{"[FILE] notes.txt\n[DIR] src"}, results)
	assert.Equal(t, []string{
		"AWAITING_MODEL>EXECUTING_TOOLS",
		"EXECUTING_TOOLS>AWAITING_MODEL",
		"AWAITING_MODEL>DONE",
	}, states)
}

func TestLoop_CancelledContext(t *testing.T) {
	gateway := mocktest.NewScriptedGateway(mocktest.Answer("never"))
	gateway.Block = make(chan struct{})
	f := newFixture(t, gateway, agent.Config{}, listFiles())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.loop.Run(ctx, "hello")
	require.Error(t, err)
	assert.Equal(t, agent.StateFailed, result.State)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, agent.ErrModelUnavailable)
	assert.Equal(t, 1, f.store.Len(thread))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "AWAITING_MODEL", agent.StateAwaitingModel.String())
	assert.Equal(t, "EXECUTING_TOOLS", agent.StateExecutingTools.String())
	assert.Equal(t, "DONE", agent.StateDone.String())
	assert.Equal(t, "FAILED", agent.StateFailed.String())
	assert.True(t, agent.StateDone.Terminal())
	assert.True(t, agent.StateFailed.Terminal())
	assert.False(t, agent.StateAwaitingModel.Terminal())
}
