package commands

import (
	"strings"
	"testing"

	"pkdindustries/mascot/internal/agent"
	mocktest "pkdindustries/mascot/internal/testing"
)

func historyAssistant() *mocktest.MockAssistant {
	call := agent.ToolCall{ID: "call_1", Name: "read_file", Arguments: map[string]any{"path": "/tmp/a"}}
	a := mocktest.NewMockAssistant()
	a.Messages = []agent.Message{
		agent.UserMessage("what is in /tmp/a?"),
		agent.AssistantMessage("", call),
		agent.ToolResultMessage(call, "hello\nworld"),
		agent.AssistantMessage("The file says hello world. " + strings.Repeat("x", 100)),
	}
	return a
}

func TestHistoryCommand_Counts(t *testing.T) {
	ctx := mocktest.NewMockContext().
		WithAssistant(historyAssistant()).
		WithArgs("/history")

	(&HistoryCommand{}).Execute(ctx)

	want := "thread: test-thread, messages: 4, user: 1, assistant: 2, tool calls: 1, tool results: 1"
	if ctx.LastReply() != want {
		t.Errorf("got %q, want %q", ctx.LastReply(), want)
	}
}

func TestHistoryCommand_Recent(t *testing.T) {
	ctx := mocktest.NewMockContext().
		WithAssistant(historyAssistant()).
		WithArgs("/history", "3")

	(&HistoryCommand{}).Execute(ctx)

	if ctx.ReplyCount() != 4 {
		t.Fatalf("expected summary plus 3 messages, got %v", ctx.Replies)
	}
	if ctx.Replies[1] != "assistant: [calls read_file]" {
		t.Errorf("unexpected call summary: %s", ctx.Replies[1])
	}
	if ctx.Replies[2] != "tool read_file: hello world" {
		t.Errorf("unexpected result summary: %s", ctx.Replies[2])
	}
	if len(ctx.Replies[3]) != len("assistant: ")+historyPreview || !strings.HasSuffix(ctx.Replies[3], "...") {
		t.Errorf("expected clipped reply, got %q", ctx.Replies[3])
	}
}

func TestHistoryCommand_BadCount(t *testing.T) {
	ctx := mocktest.NewMockContext().WithArgs("/history", "many")

	(&HistoryCommand{}).Execute(ctx)

	if ctx.LastReply() != "Usage: /history [count]" {
		t.Errorf("unexpected reply: %s", ctx.LastReply())
	}
}

func TestHistoryCommand_Empty(t *testing.T) {
	ctx := mocktest.NewMockContext().WithArgs("/history", "5")

	(&HistoryCommand{}).Execute(ctx)

	if ctx.ReplyCount() != 1 || !strings.Contains(ctx.LastReply(), "messages: 0") {
		t.Errorf("unexpected replies: %v", ctx.Replies)
	}
}
