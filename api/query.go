package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lectern-ai/lectern/internal/answer"
)

// maxQueryBody caps request bodies; questions are short.
const maxQueryBody = 64 << 10

// queryHandler serves the question answering endpoints.
type queryHandler struct {
	system  QuerySystem
	timeout time.Duration
	logger  *slog.Logger
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// query handles POST /api/query.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	body := http.MaxBytesReader(w, r.Body, maxQueryBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a query field")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query must not be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.system.Query(ctx, req.Query, req.SessionID)
	if err != nil {
		h.logger.Error("query failed", "error", err)
		status := http.StatusInternalServerError
		code := "query_failed"
		if errors.Is(err, answer.ErrGeneration) {
			status = http.StatusBadGateway
			code = "generation_failed"
		}
		// The session id still goes back so the client can retry in
		// the same conversation.
		sessionID := req.SessionID
		if resp != nil {
			sessionID = resp.SessionID
		}
		writeJSON(w, status, map[string]string{
			"error":      code,
			"message":    "failed to answer the query",
			"session_id": sessionID,
		})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// clearSession handles DELETE /api/sessions/{id}.
func (h *queryHandler) clearSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}
	h.system.ClearSession(id)
	w.WriteHeader(http.StatusNoContent)
}
