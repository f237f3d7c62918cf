package api

import (
	"log/slog"
	"net/http"

	"github.com/lectern-ai/lectern/internal/tools"
)

// coursesHandler serves index statistics.
type coursesHandler struct {
	system QuerySystem
	logger *slog.Logger
}

// courses handles GET /api/courses.
func (h *coursesHandler) courses(w http.ResponseWriter, r *http.Request) {
	stats, err := h.system.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats_failed", "failed to read index statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// toolsHandler exposes the tool schemas for debugging and clients that
// render tool capabilities.
type toolsHandler struct {
	registry *tools.Registry
	logger   *slog.Logger
}

type toolSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

// schemas handles GET /api/tools.
func (h *toolsHandler) schemas(w http.ResponseWriter, r *http.Request) {
	declared, err := h.registry.Schemas()
	if err != nil {
		h.logger.Error("tool schemas failed", "error", err)
		writeError(w, http.StatusInternalServerError, "schemas_failed", "failed to build tool schemas")
		return
	}

	out := make([]toolSchema, len(declared))
	for i, s := range declared {
		out[i] = toolSchema{
			Name:        s.Name,
			Description: s.Description,
			InputSchema: s.Input,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}
