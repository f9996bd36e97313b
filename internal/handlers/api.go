package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/common"
	"github.com/ternarybob/prowl/internal/interfaces"
)

// APIHandler serves the system endpoints (health, version, status)
type APIHandler struct {
	store     interfaces.JobStore
	queue     interfaces.QueueService
	startedAt time.Time
	logger    arbor.ILogger
}

func NewAPIHandler(store interfaces.JobStore, queue interfaces.QueueService, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		store:     store,
		queue:     queue,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.Version,
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// StatusHandler returns the queue and job counters
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uptime": time.Since(h.startedAt).String(),
		"jobs":   h.store.Count(),
		"queue": map[string]interface{}{
			"length":       h.queue.Length(),
			"isProcessing": h.queue.IsProcessing(),
		},
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
