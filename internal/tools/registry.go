package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the available tools in registration order and tracks the
// sources of the most recent successful call.
//
// Safe for concurrent use, though tool calls within one answer run in
// sequence.
type Registry struct {
	mu      sync.Mutex
	ordered []Tool
	byName  map[string]Tool
	sources []SourceLabel
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName: make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool. Duplicate names are rejected so one tool cannot
// silently shadow another.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.byName[name] = t
	r.ordered = append(r.ordered, t)
	return nil
}

// Schemas returns the declared schemas in registration order, so the
// model sees a stable tool list across calls.
func (r *Registry) Schemas() ([]Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	schemas := make([]Schema, 0, len(r.ordered))
	for _, t := range r.ordered {
		input, err := t.InputSchema()
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", t.Name(), err)
		}
		schemas = append(schemas, Schema{
			Name:        t.Name(),
			Description: t.Description(),
			Input:       input,
		})
	}
	return schemas, nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.ordered))
	for i, t := range r.ordered {
		names[i] = t.Name()
	}
	return names
}

// Execute dispatches one tool call. Unknown names fail with ErrUnknownTool;
// handler failures come back wrapped in an ExecutionError. On success the
// tool's sources replace any previously recorded ones.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.Lock()
	tool, ok := r.byName[name]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	text, sources, err := tool.Execute(ctx, args)
	if err != nil {
		r.logger.Warn("tool call failed", "tool", name, "error", err)
		return "", &ExecutionError{Tool: name, Err: err}
	}

	r.mu.Lock()
	r.sources = sources
	r.mu.Unlock()

	r.logger.Debug("tool call succeeded", "tool", name, "sources", len(sources))
	return text, nil
}

// LastSources returns the sources of the most recent successful call and
// clears them, so one answer's sources never leak into the next.
func (r *Registry) LastSources() []SourceLabel {
	r.mu.Lock()
	defer r.mu.Unlock()
	sources := r.sources
	r.sources = nil
	return sources
}
