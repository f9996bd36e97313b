package common

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Logging     LoggingConfig `toml:"logging"`
	Queue       QueueConfig   `toml:"queue"`
	Jobs        JobsConfig    `toml:"jobs"`
	Crawler     CrawlerConfig `toml:"crawler"`
	Webhook     WebhookConfig `toml:"webhook"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// QueueConfig bounds the in-memory job queue.
type QueueConfig struct {
	MaxDepth int `toml:"max_depth"` // Enqueues beyond this are rejected with 503 (0 = unbounded)
}

// JobsConfig controls retention of terminal jobs.
type JobsConfig struct {
	TTL           string `toml:"ttl"`            // e.g. "24h" - terminal jobs older than this are swept (empty = keep forever)
	SweepSchedule string `toml:"sweep_schedule"` // cron expression for the sweeper
}

// CrawlerConfig holds process-wide crawl defaults; per-job limits come
// from the request and are clamped by validation.
type CrawlerConfig struct {
	UserAgent       string `toml:"user_agent"`        // Default user agent string
	Headless        bool   `toml:"headless"`          // Run the browser headless
	DisableGPU      bool   `toml:"disable_gpu"`       // Pass --disable-gpu to the browser
	NoSandbox       bool   `toml:"no_sandbox"`        // Pass --no-sandbox to the browser
	BrowserPoolSize int    `toml:"browser_pool_size"` // Number of browser contexts to keep warm
}

// WebhookConfig holds emitter-wide settings; per-job retry counts and
// headers come from the job's webhook config.
type WebhookConfig struct {
	RequestTimeout string `toml:"request_timeout"` // e.g. "30s" - outbound POST timeout ceiling
}

// RequestTimeoutDuration parses the configured timeout with a 30s default.
func (w WebhookConfig) RequestTimeoutDuration() time.Duration {
	if w.RequestTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(w.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// TTLDuration parses the jobs TTL; zero means keep forever.
func (j JobsConfig) TTLDuration() time.Duration {
	if j.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(j.TTL)
	if err != nil {
		return 0
	}
	return d
}

// DefaultConfig returns the baseline configuration before any file or
// flag overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Queue: QueueConfig{
			MaxDepth: 0,
		},
		Jobs: JobsConfig{
			TTL:           "",
			SweepSchedule: "@every 10m",
		},
		Crawler: CrawlerConfig{
			UserAgent:       "Prowl-Crawler/1.0",
			Headless:        true,
			DisableGPU:      true,
			NoSandbox:       false,
			BrowserPoolSize: 2,
		},
		Webhook: WebhookConfig{
			RequestTimeout: "30s",
		},
	}
}

// LoadFromFiles loads configuration starting from defaults, applying
// each file in order (later files override earlier ones).
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	return config, nil
}

// ApplyFlagOverrides applies command-line overrides (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
