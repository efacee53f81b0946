package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"ProfInsight/internal/usecase"
)

const maxAskBody = 16 << 10

type handlers struct {
	service ProfessorService
	store   Pinger
	logger  *slog.Logger
	started time.Time
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *handlers) getProfessor(w http.ResponseWriter, r *http.Request) {
	name := nameParam(r)

	view, err := h.service.Lookup(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) askProfessor(w http.ResponseWriter, r *http.Request) {
	var body askRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAskBody))
	if err := dec.Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", "request body must be a JSON object with a question")
		return
	}

	answer, err := h.service.Ask(r.Context(), nameParam(r), body.Question)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("store ping failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// fail maps use case errors to responses. Context errors write nothing: the client is gone or
// the timeout middleware answers.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidName):
		writeError(w, r, http.StatusBadRequest, "invalid_name", err.Error())
	case errors.Is(err, usecase.ErrEmptyQuestion):
		writeError(w, r, http.StatusBadRequest, "invalid_question", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Info("request abandoned", "path", r.URL.Path, "error", err)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}

// nameParam returns the decoded {name} segment; hyphens are left for normalization.
func nameParam(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}
