package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
	"github.com/ternarybob/prowl/internal/services/playground"
)

// PlaygroundHandler serves the plugin playground API
type PlaygroundHandler struct {
	engine *playground.Engine
	logger arbor.ILogger
}

func NewPlaygroundHandler(engine *playground.Engine, logger arbor.ILogger) *PlaygroundHandler {
	return &PlaygroundHandler{
		engine: engine,
		logger: logger,
	}
}

// CreateJobHandler handles POST /playground/jobs. Synchronous mode
// (default) blocks until the job is terminal and returns the full job;
// async mode returns as soon as the job is accepted.
func (h *PlaygroundHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var config models.PlaygroundConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Invalid configuration",
			"issues": []string{"request body is not valid JSON: " + err.Error()},
		})
		return
	}

	if config.Async {
		job, err := h.engine.CreateJob(&config)
		if err != nil {
			h.writeCreateError(w, err)
			return
		}
		// Acknowledge once the dispatcher has picked the job up.
		if started, err := h.engine.WaitStarted(r.Context(), job.ID); err == nil {
			job = started
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"jobId":   job.ID,
			"status":  "accepted",
			"message": "Playground job accepted",
		})
		return
	}

	job, err := h.engine.CreateAndWait(r.Context(), &config)
	if err != nil && job == nil {
		h.writeCreateError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

func (h *PlaygroundHandler) writeCreateError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Invalid configuration",
			"issues": verr.Issues,
		})
	case errors.Is(err, interfaces.ErrQueueFull):
		WriteError(w, http.StatusServiceUnavailable, "Job queue is full, try again later")
	default:
		h.logger.Error().Err(err).Msg("Failed to create playground job")
		WriteError(w, http.StatusInternalServerError, "Failed to create job")
	}
}

// StartJobHandler handles POST /playground/jobs/{id}/start. Creation
// already enqueues the job, so this is an idempotent gate that returns
// the job's current state.
func (h *PlaygroundHandler) StartJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	job, err := h.engine.GetJob(jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// GetJobHandler handles GET /playground/jobs/{id}
func (h *PlaygroundHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	job, err := h.engine.GetJob(jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// GetProgressHandler handles GET /playground/jobs/{id}/progress
func (h *PlaygroundHandler) GetProgressHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	progress, err := h.engine.GetProgress(jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, progress)
}
