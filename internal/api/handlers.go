package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/falabella-scraper/internal/scraper"
)

// StatusSource exposes the running crawl's progress.
type StatusSource interface {
	Snapshot() scraper.ProgressSnapshot
}

type Handlers struct {
	status StatusSource
	logger *slog.Logger
}

func NewHandlers(status StatusSource, logger *slog.Logger) *Handlers {
	return &Handlers{
		status: status,
		logger: logger,
	}
}

// CategoryStatus is the per-category view of the run.
type CategoryStatus struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.status.Snapshot()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"run_id":  snap.RunID,
		"running": snap.Running,
	})
}

// GetStatus returns the whole progress snapshot.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.status.Snapshot())
}

// GetCategory reports one category by exact name.
func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.respondError(w, http.StatusBadRequest, "category name is required")
		return
	}

	snap := h.status.Snapshot()
	status, ok := categoryStatus(snap, name)
	if !ok {
		h.respondError(w, http.StatusNotFound, "category not started")
		return
	}

	h.respondJSON(w, http.StatusOK, status)
}

func categoryStatus(snap scraper.ProgressSnapshot, name string) (CategoryStatus, bool) {
	records, started := snap.RecordsByCategory[name]
	if !started {
		return CategoryStatus{}, false
	}

	status := CategoryStatus{Name: name, Records: records, State: "running"}
	if msg, failed := snap.CategoriesFailed[name]; failed {
		status.State = "failed"
		status.Error = msg
		return status, true
	}
	for _, done := range snap.CategoriesDone {
		if done == name {
			status.State = "done"
			break
		}
	}
	return status, true
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
