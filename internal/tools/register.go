package tools

import (
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// RegisterGenkit mirrors the registry's tools into Genkit so the model can
// request them by name. Handlers delegate to the registry; with tool
// requests returned to the caller un-executed, these handlers only run when
// Genkit is asked to execute directly.
func RegisterGenkit(g *genkit.Genkit, registry *Registry) {
	genkit.DefineTool(
		g,
		"search_course_content",
		"Search the indexed course materials for content relevant to a query. "+
			"Optionally restrict the search to one course (partial names work) or one lesson.",
		func(toolCtx *ai.ToolContext, input CourseSearchInput) (string, error) {
			return dispatch(toolCtx, registry, "search_course_content", input)
		},
	)

	genkit.DefineTool(
		g,
		"get_course_outline",
		"Get a course's title, link, instructor and complete lesson list. "+
			"Use this for questions about course structure rather than course content.",
		func(toolCtx *ai.ToolContext, input CourseOutlineInput) (string, error) {
			return dispatch(toolCtx, registry, "get_course_outline", input)
		},
	)
}

// dispatch converts a typed input back into the registry's argument form
// and executes the call.
func dispatch(toolCtx *ai.ToolContext, registry *Registry, name string, input any) (string, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encoding input: %w", err)
	}
	args := make(map[string]any)
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("decoding input: %w", err)
	}
	return registry.Execute(toolCtx.Context, name, args)
}
