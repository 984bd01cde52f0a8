package progress

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes run progress over HTTP using go-chi.
type Handler struct {
	tracker *Tracker
	log     *slog.Logger
}

// NewHandler returns a Handler reading from tracker.
func NewHandler(tracker *Tracker, log *slog.Logger) *Handler {
	return &Handler{tracker: tracker, log: log}
}

// ListRuns handles GET /runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.tracker.List())
}

// GetRun handles GET /runs/{manifest}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	manifest := chi.URLParam(r, "manifest")
	if manifest == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	run, ok := h.tracker.Snapshot(manifest)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.writeJSON(w, run)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response failed", slog.String("error", err.Error()))
	}
}
