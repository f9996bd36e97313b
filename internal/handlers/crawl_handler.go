package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
	"github.com/ternarybob/prowl/internal/services/crawler"
)

var allWebhookUpdates = []string{"started", "progress", "completed", "failed"}

// CrawlHandler serves the crawl job API
type CrawlHandler struct {
	engine *crawler.Engine
	queue  interfaces.QueueService
	logger arbor.ILogger
}

func NewCrawlHandler(engine *crawler.Engine, queue interfaces.QueueService, logger arbor.ILogger) *CrawlHandler {
	return &CrawlHandler{
		engine: engine,
		queue:  queue,
		logger: logger,
	}
}

// normalizeDomain turns a path segment like "example.com" into a crawl
// seed URL: https:// is prefixed (falling back to http:// for inputs
// that already carry a scheme) and the hostname extracted.
func normalizeDomain(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", fmt.Errorf("domain is empty")
	}
	if strings.ContainsAny(domain, " \t") {
		return "", fmt.Errorf("domain contains whitespace")
	}

	candidate := domain
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Hostname() == "" {
		// Fall back to http:// for inputs https:// could not absorb.
		u, err = url.Parse("http://" + domain)
		if err != nil || u.Hostname() == "" {
			return "", fmt.Errorf("cannot extract hostname from %q", domain)
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !strings.Contains(u.Hostname(), ".") && u.Hostname() != "localhost" {
		return "", fmt.Errorf("%q does not look like a domain", u.Hostname())
	}

	return u.Scheme + "://" + u.Host + "/", nil
}

// CreateCrawlHandler handles POST /crawl/{siteDomain}
func (h *CrawlHandler) CreateCrawlHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	domain := strings.TrimPrefix(r.URL.Path, "/crawl/")
	seedURL, err := normalizeDomain(domain)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Invalid domain",
			"message": err.Error(),
		})
		return
	}

	var config models.CrawlConfig
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  "Invalid configuration",
				"issues": []string{"request body is not valid JSON: " + err.Error()},
			})
			return
		}
	}
	config.URL = seedURL

	job, err := h.engine.CreateJob(&config)
	if err != nil {
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
			h.logger.Error().Err(err).Msg("Failed to create crawl job")
			WriteError(w, http.StatusInternalServerError, "Failed to create job")
		}
		return
	}

	position := h.queue.Position(job.ID)
	isProcessing := h.queue.IsProcessing()

	estimatedStart := "immediate"
	if position > 1 || isProcessing {
		estimatedStart = fmt.Sprintf("after %d queued job(s)", position-1+boolToInt(isProcessing))
	}

	expectedUpdates := config.Webhook.On
	if len(expectedUpdates) == 0 {
		expectedUpdates = allWebhookUpdates
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Crawl of %s accepted", seedURL),
		"jobId":   job.ID,
		"status":  "accepted",
		"queueInfo": map[string]interface{}{
			"position":       position,
			"isProcessing":   isProcessing,
			"estimatedStart": estimatedStart,
		},
		"webhook": map[string]interface{}{
			"url":             config.Webhook.URL,
			"expectedUpdates": expectedUpdates,
		},
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetJobHandler handles GET /crawl/jobs/{id}
func (h *CrawlHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
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

// GetProgressHandler handles GET /crawl/jobs/{id}/progress
func (h *CrawlHandler) GetProgressHandler(w http.ResponseWriter, r *http.Request, jobID string) {
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
