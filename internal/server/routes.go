package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Crawl API: POST /crawl/{siteDomain} and GET /crawl/jobs/{id}[/progress]
	mux.HandleFunc("/crawl/", s.handleCrawlRoutes)

	// Playground API
	mux.HandleFunc("/playground/jobs", s.app.PlaygroundHandler.CreateJobHandler)
	mux.HandleFunc("/playground/jobs/", s.handlePlaygroundJobRoutes)

	// WebSocket event stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.APIHandler.StatusHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleCrawlRoutes splits /crawl/jobs/... from /crawl/{siteDomain}
func (s *Server) handleCrawlRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if strings.HasPrefix(path, "/crawl/jobs/") {
		rest := strings.TrimPrefix(path, "/crawl/jobs/")

		// GET /crawl/jobs/{id}/progress
		if strings.HasSuffix(rest, "/progress") {
			jobID := strings.TrimSuffix(rest, "/progress")
			s.app.CrawlHandler.GetProgressHandler(w, r, jobID)
			return
		}

		// GET /crawl/jobs/{id}
		if rest != "" && !strings.Contains(rest, "/") {
			s.app.CrawlHandler.GetJobHandler(w, r, rest)
			return
		}

		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	// POST /crawl/{siteDomain}
	s.app.CrawlHandler.CreateCrawlHandler(w, r)
}

// handlePlaygroundJobRoutes handles /playground/jobs/{id} subpaths
func (s *Server) handlePlaygroundJobRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/playground/jobs/")

	// POST /playground/jobs/{id}/start
	if strings.HasSuffix(rest, "/start") {
		jobID := strings.TrimSuffix(rest, "/start")
		s.app.PlaygroundHandler.StartJobHandler(w, r, jobID)
		return
	}

	// GET /playground/jobs/{id}/progress
	if strings.HasSuffix(rest, "/progress") {
		jobID := strings.TrimSuffix(rest, "/progress")
		s.app.PlaygroundHandler.GetProgressHandler(w, r, jobID)
		return
	}

	// GET /playground/jobs/{id}
	if rest != "" && !strings.Contains(rest, "/") {
		s.app.PlaygroundHandler.GetJobHandler(w, r, rest)
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}
