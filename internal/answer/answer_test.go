package answer

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// scriptedModel returns canned replies in order and records each request.
type scriptedModel struct {
	replies  []*ModelReply
	err      error
	requests []*ModelRequest
}

func (m *scriptedModel) Generate(ctx context.Context, req *ModelRequest) (*ModelReply, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.requests) > len(m.replies) {
		return nil, errors.New("scripted model ran out of replies")
	}
	return m.replies[len(m.requests)-1], nil
}

// echoTool records how it was called and returns fixed output.
type echoTool struct {
	name    string
	output  string
	sources []tools.SourceLabel
	err     error
	calls   []map[string]any
}

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "test tool" }

func (e *echoTool) InputSchema() (*jsonschema.Schema, error) {
	return jsonschema.For[tools.CourseSearchInput](nil)
}

func (e *echoTool) Execute(ctx context.Context, args map[string]any) (string, []tools.SourceLabel, error) {
	e.calls = append(e.calls, args)
	if e.err != nil {
		return "", nil, e.err
	}
	return e.output, e.sources, nil
}

func newRegistry(t *testing.T, tls ...tools.Tool) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry(slog.New(slog.DiscardHandler))
	for _, tool := range tls {
		if err := r.Register(tool); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	return r
}

func nopLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func toolRequest(name string, args map[string]any) *ai.ToolRequest {
	return &ai.ToolRequest{Name: name, Input: args}
}

func TestAnswerDirect(t *testing.T) {
	model := &scriptedModel{replies: []*ModelReply{{Text: "Paris."}}}
	o := New(model, newRegistry(t, &echoTool{name: "search_course_content"}), 2, nopLogger())

	result, err := o.Answer(context.Background(), "Capital of France?", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.Answer != "Paris." {
		t.Errorf("Answer = %q, want Paris.", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Errorf("direct answer carried sources: %v", result.Sources)
	}
	if len(model.requests) != 1 {
		t.Fatalf("model called %d times, want 1", len(model.requests))
	}
	// Tools are offered on the first round.
	if len(model.requests[0].Tools) != 1 {
		t.Errorf("first round offered %v tools, want 1", model.requests[0].Tools)
	}
}

func TestAnswerSingleToolRound(t *testing.T) {
	sources := []tools.SourceLabel{{Display: "Compilers - Lesson 1"}}
	tool := &echoTool{name: "search_course_content", output: "[Compilers - Lesson 1]\nTokens.", sources: sources}
	model := &scriptedModel{replies: []*ModelReply{
		{ToolRequests: []*ai.ToolRequest{toolRequest("search_course_content", map[string]any{"query": "tokens"})}},
		{Text: "Tokens are the atoms of a program."},
	}}
	o := New(model, newRegistry(t, tool), 2, nopLogger())

	result, err := o.Answer(context.Background(), "What are tokens?", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.Answer != "Tokens are the atoms of a program." {
		t.Errorf("Answer = %q", result.Answer)
	}
	if len(result.Sources) != 1 || result.Sources[0].Display != "Compilers - Lesson 1" {
		t.Errorf("Sources = %v", result.Sources)
	}
	if len(tool.calls) != 1 || tool.calls[0]["query"] != "tokens" {
		t.Errorf("tool calls = %v", tool.calls)
	}

	// Second request carries the tool transcript.
	second := model.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != ai.RoleTool {
		t.Errorf("last message role = %v, want tool", last.Role)
	}
}

func TestAnswerRoundLimit(t *testing.T) {
	tool := &echoTool{name: "search_course_content", output: "partial results"}
	// The model keeps asking for tools; the loop must force a final
	// tool-less call after maxRounds.
	model := &scriptedModel{replies: []*ModelReply{
		{ToolRequests: []*ai.ToolRequest{toolRequest("search_course_content", map[string]any{"query": "a"})}},
		{ToolRequests: []*ai.ToolRequest{toolRequest("search_course_content", map[string]any{"query": "b"})}},
		{Text: "Best effort answer."},
	}}
	o := New(model, newRegistry(t, tool), 2, nopLogger())

	result, err := o.Answer(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.Answer != "Best effort answer." {
		t.Errorf("Answer = %q", result.Answer)
	}
	if len(tool.calls) != 2 {
		t.Errorf("tool executed %d times, want 2", len(tool.calls))
	}
	if len(model.requests) != 3 {
		t.Fatalf("model called %d times, want 3", len(model.requests))
	}
	if len(model.requests[2].Tools) != 0 {
		t.Errorf("final round offered tools %v, want none", model.requests[2].Tools)
	}
}

func TestAnswerToolErrorFeedsBack(t *testing.T) {
	tool := &echoTool{name: "search_course_content", err: errors.New("index unavailable")}
	model := &scriptedModel{replies: []*ModelReply{
		{ToolRequests: []*ai.ToolRequest{toolRequest("search_course_content", map[string]any{"query": "x"})}},
		{Text: "I could not search the course materials."},
	}}
	o := New(model, newRegistry(t, tool), 2, nopLogger())

	result, err := o.Answer(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v, tool failures must not abort", err)
	}
	if result.Answer != "I could not search the course materials." {
		t.Errorf("Answer = %q", result.Answer)
	}

	// The failure surfaced to the model as tool-result text.
	second := model.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if len(last.Content) != 1 || last.Content[0].ToolResponse == nil {
		t.Fatalf("expected a tool response part, got %+v", last.Content)
	}
	output, ok := last.Content[0].ToolResponse.Output.(string)
	if !ok || output == "" {
		t.Fatalf("tool response output = %v", last.Content[0].ToolResponse.Output)
	}
	if want := "Tool error: "; len(output) < len(want) || output[:len(want)] != want {
		t.Errorf("tool result = %q, want %q prefix", output, want)
	}
}

func TestAnswerUnknownTool(t *testing.T) {
	model := &scriptedModel{replies: []*ModelReply{
		{ToolRequests: []*ai.ToolRequest{toolRequest("launch_missiles", nil)}},
		{Text: "That tool does not exist."},
	}}
	o := New(model, newRegistry(t), 2, nopLogger())

	result, err := o.Answer(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.Answer != "That tool does not exist." {
		t.Errorf("Answer = %q", result.Answer)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	model := &scriptedModel{err: errors.New("quota exhausted")}
	o := New(model, newRegistry(t), 2, nopLogger())

	_, err := o.Answer(context.Background(), "question", nil)
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("Answer() error = %v, want ErrGeneration", err)
	}
}

func TestAnswerEmptyResponseFallback(t *testing.T) {
	model := &scriptedModel{replies: []*ModelReply{{Text: "   "}}}
	o := New(model, newRegistry(t), 2, nopLogger())

	result, err := o.Answer(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if result.Answer != fallbackMessage {
		t.Errorf("Answer = %q, want fallback", result.Answer)
	}
}

func TestAnswerHistoryIncluded(t *testing.T) {
	model := &scriptedModel{replies: []*ModelReply{{Text: "As I said, Paris."}}}
	o := New(model, newRegistry(t), 2, nopLogger())

	history := []session.Turn{
		{Role: session.RoleUser, Content: "Capital of France?"},
		{Role: session.RoleAssistant, Content: "Paris."},
	}
	if _, err := o.Answer(context.Background(), "Repeat that.", history); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	msgs := model.requests[0].Messages
	if len(msgs) != 3 {
		t.Fatalf("model saw %d messages, want 3", len(msgs))
	}
	if msgs[0].Role != ai.RoleUser || msgs[1].Role != ai.RoleModel || msgs[2].Role != ai.RoleUser {
		t.Errorf("message roles = %v %v %v", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
	if msgs[2].Content[0].Text != "Repeat that." {
		t.Errorf("current query = %q", msgs[2].Content[0].Text)
	}
}

func TestAnswerClearsStaleSources(t *testing.T) {
	sources := []tools.SourceLabel{{Display: "old"}}
	tool := &echoTool{name: "search_course_content", output: "ok", sources: sources}
	registry := newRegistry(t, tool)

	// Simulate sources left over from a previous run.
	if _, err := registry.Execute(context.Background(), "search_course_content", map[string]any{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	model := &scriptedModel{replies: []*ModelReply{{Text: "direct answer"}}}
	o := New(model, registry, 2, nopLogger())

	result, err := o.Answer(context.Background(), "question", nil)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(result.Sources) != 0 {
		t.Errorf("stale sources leaked into a new answer: %v", result.Sources)
	}
}
