package models

import (
	"time"
)

// Default limits applied when a crawl config omits a field.
const (
	DefaultMaxDepth             = 3
	DefaultMaxPages             = 100
	DefaultMaxRequestsPerMinute = 60
	DefaultMaxConcurrency       = 4
	DefaultPageTimeoutMs        = 30000
	DefaultRequestTimeoutMs     = 30000
	DefaultWebhookRetries       = 3
)

// URLFilter is an in-process predicate over candidate URLs. URLs for
// which it returns false are counted as skipped, not visited. It is not
// expressible in JSON and can only be installed by embedding callers.
type URLFilter func(url string) bool

// TimeoutConfig holds per-page and per-request timeouts in milliseconds.
type TimeoutConfig struct {
	Page    int `json:"page,omitempty" validate:"omitempty,min=1000,max=60000"`
	Request int `json:"request,omitempty" validate:"omitempty,min=1000,max=60000"`
}

// PageTimeout returns the page-load timeout as a duration.
func (t TimeoutConfig) PageTimeout() time.Duration {
	ms := t.Page
	if ms == 0 {
		ms = DefaultPageTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// RequestTimeout returns the subresource/webhook request timeout.
func (t TimeoutConfig) RequestTimeout() time.Duration {
	ms := t.Request
	if ms == 0 {
		ms = DefaultRequestTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// WebhookConfig describes where and how job events are delivered.
type WebhookConfig struct {
	URL     string            `json:"url" validate:"required,url"`
	Headers map[string]string `json:"headers,omitempty"`
	// On filters outbound event names (started, progress, completed,
	// failed). Absent means deliver everything; unknown names are ignored.
	On      []string `json:"on,omitempty"`
	Retries int      `json:"retries,omitempty" validate:"omitempty,min=1,max=5"`
}

// MaxAttempts returns the retry budget with the default applied.
func (w *WebhookConfig) MaxAttempts() int {
	if w == nil || w.Retries == 0 {
		return DefaultWebhookRetries
	}
	return w.Retries
}

// Wants reports whether the given outbound event name passes the filter.
func (w *WebhookConfig) Wants(event string) bool {
	if w == nil {
		return false
	}
	if len(w.On) == 0 {
		return true
	}
	for _, name := range w.On {
		if name == event {
			return true
		}
	}
	return false
}

// CrawlConfig defines crawl behavior for a single job.
type CrawlConfig struct {
	// URL is the starting point, set by the server from the request path.
	URL                  string            `json:"url"`
	MaxDepth             int               `json:"max_depth,omitempty" validate:"omitempty,min=1,max=10"`
	MaxPages             int               `json:"max_pages,omitempty" validate:"omitempty,min=1,max=1000"`
	MaxRequestsPerMinute int               `json:"max_requests_per_minute,omitempty" validate:"omitempty,min=1,max=300"`
	MaxConcurrency       int               `json:"max_concurrency,omitempty" validate:"omitempty,min=1,max=100"`
	Timeout              TimeoutConfig     `json:"timeout,omitempty"`
	Headers              map[string]string `json:"headers,omitempty"`
	UserAgent            string            `json:"user_agent,omitempty"`
	RespectRobotsTxt     bool              `json:"respect_robots_txt,omitempty"`
	SitemapURL           string            `json:"sitemap_url,omitempty"`
	// IncludePatterns/ExcludePatterns are regex filters compiled into the
	// URL filter; unlike URLFilter they survive JSON transport.
	IncludePatterns []string       `json:"include_patterns,omitempty"`
	ExcludePatterns []string       `json:"exclude_patterns,omitempty"`
	URLFilter       URLFilter      `json:"-"`
	Webhook         *WebhookConfig `json:"webhook" validate:"required"`
}

// ApplyDefaults fills zero-valued limits with their defaults.
func (c *CrawlConfig) ApplyDefaults() {
	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxPages == 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.MaxRequestsPerMinute == 0 {
		c.MaxRequestsPerMinute = DefaultMaxRequestsPerMinute
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
}

// PlaygroundConfig defines a playground job: the pipeline runs once over
// an opaque input instead of a page traversal.
type PlaygroundConfig struct {
	Input   interface{}    `json:"input"`
	Retries int            `json:"retries,omitempty" validate:"omitempty,min=0,max=10"`
	Plugins []string       `json:"plugins,omitempty"`
	Webhook *WebhookConfig `json:"webhook,omitempty"`
	Async   bool           `json:"async,omitempty"`
}
