package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"veriprompt/internal/generate"
	"veriprompt/internal/pipeline"
)

// Runner is the pipeline entrypoint the handler depends on.
type Runner interface {
	Run(ctx context.Context, prompt string) (*pipeline.Result, error)
}

type Handler struct {
	pipe Runner
	log  *zap.Logger
}

func NewHandler(pipe Runner, log *zap.Logger) *Handler {
	return &Handler{pipe: pipe, log: log}
}

// NewMux registers the generation endpoint and the health probe.
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", h.Generate)
	mux.HandleFunc("/healthz", h.Health)
	return mux
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		http.Error(w, "No prompt provided.", http.StatusBadRequest)
		return
	}

	result, err := h.pipe.Run(r.Context(), req.Prompt)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps the pipeline error taxonomy to client-visible statuses.
// Full diagnostic detail stays in the operator logs; the client sees a
// stable, minimal body.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.log.Error("pipeline failed", zap.Error(err))

	if errors.Is(err, pipeline.ErrEmptyPrompt) {
		http.Error(w, "No prompt provided.", http.StatusBadRequest)
		return
	}
	if kind, ok := generate.KindOf(err); ok {
		switch kind {
		case generate.KindCapacityExhausted:
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Service is temporarily saturated. Please try again shortly.",
			})
		case generate.KindDeadlineExceeded:
			writeJSON(w, http.StatusGatewayTimeout, map[string]string{
				"error": "Image generation timed out. Please retry in a moment.",
			})
		}
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "Failed to process request.",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
