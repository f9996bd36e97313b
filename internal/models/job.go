package models

import (
	"time"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
// Terminal jobs are immutable: no field of the job changes after entry.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether the transition s -> next is legal.
// The only legal chain is queued -> running -> (completed|failed).
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// JobKind identifies which engine owns a job
type JobKind string

const (
	JobKindCrawl      JobKind = "crawl"
	JobKindPlayground JobKind = "playground"
)

// Job is the primary entity: one per client request.
// Configuration is snapshot at creation time so a job is self-contained
// and unaffected by later config changes.
type Job struct {
	ID       string     `json:"id"`
	Kind     JobKind    `json:"kind"`
	Config   JobConfig  `json:"config"`
	Progress Progress   `json:"progress"`
	Result   *JobResult `json:"result,omitempty"`
	// Priority is reserved; all jobs run at priority 0 (strict FIFO).
	Priority int `json:"priority"`
	// Retries and MaxRetries are reserved for job-level replay; failed
	// pages and plugins are recorded in the result, not retried.
	Retries    int       `json:"retries"`
	MaxRetries int       `json:"max_retries"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// JobConfig is the frozen configuration snapshot attached to a job.
// Exactly one of Crawl/Playground is set, matching Job.Kind.
type JobConfig struct {
	Crawl      *CrawlConfig      `json:"crawl,omitempty"`
	Playground *PlaygroundConfig `json:"playground,omitempty"`
}

// Webhook returns the webhook configuration for either kind, or nil.
func (c JobConfig) Webhook() *WebhookConfig {
	if c.Crawl != nil {
		return c.Crawl.Webhook
	}
	if c.Playground != nil {
		return c.Playground.Webhook
	}
	return nil
}

// Progress is the observable status snapshot attached to a job.
type Progress struct {
	Status    JobStatus  `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	// Error is set only when Status is failed.
	Error string `json:"error,omitempty"`

	// Crawl-specific fields
	PagesAnalyzed int    `json:"pages_analyzed,omitempty"`
	TotalPages    int    `json:"total_pages,omitempty"`
	CurrentURL    string `json:"current_url,omitempty"`
	CurrentDepth  int    `json:"current_depth,omitempty"`
	UniqueURLs    int    `json:"unique_urls,omitempty"`
	SkippedURLs   int    `json:"skipped_urls,omitempty"`
	FailedURLs    int    `json:"failed_urls,omitempty"`

	// Playground-specific fields
	CurrentPlugin    string   `json:"current_plugin,omitempty"`
	CompletedPlugins []string `json:"completed_plugins,omitempty"`
}

// ElapsedTime returns the wall time since the job started, or the total
// run time once the job is terminal.
func (p *Progress) ElapsedTime() time.Duration {
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// ResultError records the most recent plugin failure of a run.
// Last writer wins; per-plugin errors do not fail the job.
type ResultError struct {
	Message   string    `json:"message"`
	Plugin    string    `json:"plugin,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JobResult accumulates per-page (or per-plugin) metrics during a run.
// It is nil while the job is queued and initialized empty when a run begins.
type JobResult struct {
	// Pages holds one analysis per visited page (crawl jobs only).
	Pages []PageAnalysis `json:"pages,omitempty"`
	// Metrics holds one entry per page (crawl) or per plugin execution
	// (playground), keyed by plugin name. Values are opaque
	// JSON-serializable data owned by each plugin.
	Metrics []map[string]interface{} `json:"metrics"`
	// Summary maps plugin name to the value returned by its Summarize hook.
	Summary map[string]interface{} `json:"summary,omitempty"`
	Error   *ResultError           `json:"error,omitempty"`
}

// PageAnalysis is the structured analysis of a single visited page.
type PageAnalysis struct {
	URL        string                 `json:"url"`
	Title      string                 `json:"title,omitempty"`
	StatusCode int                    `json:"status_code"`
	Depth      int                    `json:"depth"`
	LoadTimeMs int64                  `json:"load_time_ms"`
	WordCount  int                    `json:"word_count,omitempty"`
	Links      []string               `json:"links,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Metrics    map[string]interface{} `json:"metrics,omitempty"`
}

// Clone returns a deep copy of the job. The store hands out clones so
// readers never observe a job mid-mutation.
func (j *Job) Clone() *Job {
	c := *j

	if len(j.Progress.CompletedPlugins) > 0 {
		c.Progress.CompletedPlugins = append([]string(nil), j.Progress.CompletedPlugins...)
	}

	if j.Result != nil {
		r := JobResult{}
		if len(j.Result.Pages) > 0 {
			r.Pages = append([]PageAnalysis(nil), j.Result.Pages...)
		}
		if j.Result.Metrics != nil {
			r.Metrics = make([]map[string]interface{}, len(j.Result.Metrics))
			for i, m := range j.Result.Metrics {
				cm := make(map[string]interface{}, len(m))
				for k, v := range m {
					cm[k] = v
				}
				r.Metrics[i] = cm
			}
		}
		if j.Result.Summary != nil {
			r.Summary = make(map[string]interface{}, len(j.Result.Summary))
			for k, v := range j.Result.Summary {
				r.Summary[k] = v
			}
		}
		if j.Result.Error != nil {
			e := *j.Result.Error
			r.Error = &e
		}
		c.Result = &r
	}

	if j.Progress.EndTime != nil {
		t := *j.Progress.EndTime
		c.Progress.EndTime = &t
	}

	return &c
}
