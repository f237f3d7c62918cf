// Package tools provides the search tools the model can call while
// answering a question, plus the registry that dispatches those calls.
//
// Tools return their findings as plain text for the model and record the
// sources they consulted; the registry collects the sources of the most
// recent successful call so the answer pipeline can attach them to the
// final response.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	// ErrUnknownTool indicates a call to a tool name that is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrCourseNotFound indicates a course filter that matched no indexed
	// course, even fuzzily.
	ErrCourseNotFound = errors.New("no course matches")
)

// ExecutionError wraps a failure inside a tool handler. The answer loop
// feeds it back to the model as a tool result rather than aborting.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// SourceLabel identifies one document a tool drew from.
type SourceLabel struct {
	Display string
	Link    string
}

// String renders the label in "display|link" form, or just the display
// text when no link is known.
func (s SourceLabel) String() string {
	if s.Link == "" {
		return s.Display
	}
	return s.Display + "|" + s.Link
}

// MarshalJSON renders the label as a plain JSON string in String() form.
// Clients receive sources as strings, not objects.
func (s SourceLabel) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Schema describes one tool for the model.
type Schema struct {
	Name        string
	Description string
	Input       *jsonschema.Schema
}

// Tool is a search capability the model may invoke.
type Tool interface {
	// Name returns the tool's stable identifier.
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// InputSchema describes the tool's arguments.
	InputSchema() (*jsonschema.Schema, error)

	// Execute runs the tool with decoded JSON arguments. It returns the
	// text result for the model and the sources it consulted.
	Execute(ctx context.Context, args map[string]any) (string, []SourceLabel, error)
}
