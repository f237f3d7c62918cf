// Package answer runs the tool-use loop that turns a question plus
// conversation history into a final answer.
//
// One answer is a small state machine: generate, execute any requested
// tools, feed the results back, and repeat until the model stops asking
// for tools or the round limit forces a final tool-less call. Tool
// failures are not fatal; they go back to the model as tool-result text
// so it can recover or explain. Only model generation failures abort.
package answer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// ErrGeneration indicates the model call itself failed. Terminal: the
// loop stops and no answer is produced.
var ErrGeneration = errors.New("model generation failed")

// fallbackMessage is returned when the model produces an empty final
// response.
const fallbackMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// ModelRequest is one generation call.
type ModelRequest struct {
	System   string
	Messages []*ai.Message
	Tools    []string // tool names offered this round; empty offers none
}

// ModelReply is the model's output for one generation call.
type ModelReply struct {
	Text         string
	ToolRequests []*ai.ToolRequest
}

// ModelClient generates model replies. Implementations must return tool
// requests to the caller rather than executing them.
type ModelClient interface {
	Generate(ctx context.Context, req *ModelRequest) (*ModelReply, error)
}

// Result is a finished answer with the sources its tools consulted.
type Result struct {
	Answer  string
	Sources []tools.SourceLabel
}

// runState tracks where the loop is between transitions.
type runState int

const (
	stateAwaitingModel runState = iota
	stateExecutingTool
	stateDone
	stateFailed
)

// Orchestrator drives the generate/execute loop for one question at a time.
// Safe for concurrent use; all per-answer state lives on the stack.
type Orchestrator struct {
	model     ModelClient
	registry  *tools.Registry
	maxRounds int
	logger    *slog.Logger
}

// New creates an Orchestrator allowing at most maxRounds tool rounds per
// answer.
func New(model ModelClient, registry *tools.Registry, maxRounds int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		model:     model,
		registry:  registry,
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// Answer resolves one question against the given history.
func (o *Orchestrator) Answer(ctx context.Context, query string, history []session.Turn) (*Result, error) {
	// Stale sources from an aborted earlier run must not attach here.
	o.registry.LastSources()

	messages := historyMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(query)))

	rounds := 0
	state := stateAwaitingModel
	var reply *ModelReply

	for state != stateDone && state != stateFailed {
		switch state {
		case stateAwaitingModel:
			req := &ModelRequest{
				System:   systemPrompt,
				Messages: messages,
			}
			if rounds < o.maxRounds {
				req.Tools = o.registry.Names()
			}

			var err error
			reply, err = o.model.Generate(ctx, req)
			if err != nil {
				o.logger.Error("generation failed", "round", rounds, "error", err)
				return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
			}

			// Tool requests only count when tools were actually offered.
			if len(reply.ToolRequests) > 0 && rounds < o.maxRounds {
				messages = append(messages, toolRequestMessage(reply))
				state = stateExecutingTool
				continue
			}
			state = stateDone

		case stateExecutingTool:
			parts := make([]*ai.Part, 0, len(reply.ToolRequests))
			for _, req := range reply.ToolRequests {
				output := o.executeOne(ctx, req)
				parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
					Name:   req.Name,
					Ref:    req.Ref,
					Output: output,
				}))
			}
			messages = append(messages, &ai.Message{Role: ai.RoleTool, Content: parts})
			rounds++
			state = stateAwaitingModel
		}
	}

	text := strings.TrimSpace(reply.Text)
	if text == "" {
		o.logger.Warn("model returned empty final response")
		text = fallbackMessage
	}

	return &Result{
		Answer:  text,
		Sources: o.registry.LastSources(),
	}, nil
}

// executeOne runs a single tool request. Failures become result text the
// model sees on the next round.
func (o *Orchestrator) executeOne(ctx context.Context, req *ai.ToolRequest) string {
	args, err := requestArgs(req.Input)
	if err != nil {
		o.logger.Warn("malformed tool arguments", "tool", req.Name, "error", err)
		return "Tool error: " + err.Error()
	}

	output, err := o.registry.Execute(ctx, req.Name, args)
	if err != nil {
		return "Tool error: " + err.Error()
	}
	return output
}

// historyMessages converts stored turns into model messages.
func historyMessages(history []session.Turn) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history)+1)
	for _, turn := range history {
		switch turn.Role {
		case session.RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Content)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Content)))
		}
	}
	return messages
}

// toolRequestMessage rebuilds the model turn that asked for tools, so the
// transcript the model sees on the next round is complete.
func toolRequestMessage(reply *ModelReply) *ai.Message {
	parts := make([]*ai.Part, 0, len(reply.ToolRequests)+1)
	if strings.TrimSpace(reply.Text) != "" {
		parts = append(parts, ai.NewTextPart(reply.Text))
	}
	for _, req := range reply.ToolRequests {
		parts = append(parts, ai.NewToolRequestPart(req))
	}
	return &ai.Message{Role: ai.RoleModel, Content: parts}
}

// requestArgs normalizes a tool request's input into string-keyed form.
func requestArgs(input any) (map[string]any, error) {
	if input == nil {
		return map[string]any{}, nil
	}
	if args, ok := input.(map[string]any); ok {
		return args, nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments: %w", err)
	}
	args := make(map[string]any)
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments are not an object: %w", err)
	}
	return args, nil
}
