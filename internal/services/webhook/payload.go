package webhook

import (
	"time"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// Outbound statuses. These are the only names the per-job `on` filter
// matches against; internal event types fold into them.
const (
	StatusStarted   = "started"
	StatusProgress  = "progress"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// statusFor maps an internal event to an outbound status, or "" for
// events that have no webhook representation. plugin_complete folds
// into progress for playground jobs only; crawl progress is carried by
// page_complete, so per-plugin completions during a crawl stay internal.
func statusFor(event interfaces.Event) string {
	switch event.Type {
	case interfaces.EventJobStart:
		return StatusStarted
	case interfaces.EventJobComplete:
		return StatusCompleted
	case interfaces.EventJobError:
		return StatusFailed
	case interfaces.EventPageComplete, interfaces.EventProgress:
		return StatusProgress
	case interfaces.EventPluginComplete:
		if event.Job != nil && event.Job.Kind == models.JobKindCrawl {
			return ""
		}
		return StatusProgress
	default:
		return ""
	}
}

// buildPayload assembles the outbound JSON body for one event.
// Payloads use camelCase keys; the envelope is always
// {status, jobId, timestamp} plus status-specific fields.
func buildPayload(status string, event interfaces.Event) map[string]interface{} {
	payload := map[string]interface{}{
		"status":    status,
		"jobId":     event.JobID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	job := event.Job
	if job == nil {
		return payload
	}

	switch status {
	case StatusStarted:
		payload["config"] = startedConfig(job)
	case StatusProgress:
		addProgressFields(payload, event, job)
	case StatusCompleted:
		addCompletedFields(payload, job)
	case StatusFailed:
		payload["error"] = failureMessage(event, job)
		payload["progress"] = progressBody(job)
	}

	return payload
}

func startedConfig(job *models.Job) map[string]interface{} {
	config := map[string]interface{}{}
	if c := job.Config.Crawl; c != nil {
		config["url"] = c.URL
		config["maxDepth"] = c.MaxDepth
		config["maxPages"] = c.MaxPages
	}
	if p := job.Config.Playground; p != nil && len(p.Plugins) > 0 {
		config["plugins"] = p.Plugins
	}
	return config
}

func addProgressFields(payload map[string]interface{}, event interfaces.Event, job *models.Job) {
	payload["progress"] = progressBody(job)

	switch job.Kind {
	case models.JobKindCrawl:
		if event.Page != nil {
			currentPage := map[string]interface{}{"url": event.Page.URL}
			if event.Page.Title != "" {
				currentPage["title"] = event.Page.Title
			}
			if event.Page.WordCount > 0 {
				currentPage["wordCount"] = event.Page.WordCount
			}
			payload["currentPage"] = currentPage
		}
	case models.JobKindPlayground:
		if event.PluginName != "" {
			payload["pluginName"] = event.PluginName
		}
		if event.Metrics != nil {
			payload["metrics"] = event.Metrics
		}
	}
}

func addCompletedFields(payload map[string]interface{}, job *models.Job) {
	result := map[string]interface{}{}
	if job.Result != nil {
		if len(job.Result.Pages) > 0 {
			result["pages"] = job.Result.Pages
		}
		if job.Result.Metrics != nil {
			result["metrics"] = job.Result.Metrics
		}
		if job.Result.Summary != nil {
			result["summary"] = job.Result.Summary
		}
	}
	payload["result"] = result

	summary := map[string]interface{}{
		"duration": job.Progress.ElapsedTime().Milliseconds(),
	}
	switch job.Kind {
	case models.JobKindCrawl:
		summary["pagesAnalyzed"] = job.Progress.PagesAnalyzed
		summary["uniqueUrls"] = job.Progress.UniqueURLs
		summary["skippedUrls"] = job.Progress.SkippedURLs
		summary["failedUrls"] = job.Progress.FailedURLs
	case models.JobKindPlayground:
		summary["completedPlugins"] = job.Progress.CompletedPlugins
	}
	payload["summary"] = summary
}

func progressBody(job *models.Job) map[string]interface{} {
	p := job.Progress

	switch job.Kind {
	case models.JobKindCrawl:
		return map[string]interface{}{
			"pagesAnalyzed": p.PagesAnalyzed,
			"totalPages":    p.TotalPages,
			"currentUrl":    p.CurrentURL,
			"uniqueUrls":    p.UniqueURLs,
			"skippedUrls":   p.SkippedURLs,
			"failedUrls":    p.FailedURLs,
			"currentDepth":  p.CurrentDepth,
			"elapsedTime":   p.ElapsedTime().Milliseconds(),
		}
	default:
		body := map[string]interface{}{
			"status":           string(p.Status),
			"completedPlugins": p.CompletedPlugins,
		}
		if p.CurrentPlugin != "" {
			body["currentPlugin"] = p.CurrentPlugin
		}
		return body
	}
}

func failureMessage(event interfaces.Event, job *models.Job) string {
	if event.Err != nil {
		return event.Err.Error()
	}
	return job.Progress.Error
}
