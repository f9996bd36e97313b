package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/prowl/internal/models"
)

// Plugin is the base capability every plugin implements. Lifecycle hooks
// are optional capabilities discovered by type assertion; a plugin
// implements only the interfaces it needs.
type Plugin interface {
	Name() string
	Enabled() bool
}

// PluginStorage is the keyed store the pipeline hands to each plugin
// through PluginContext.Storage. It is isolated per plugin and scoped
// to one run; nothing persists across jobs or process restarts.
type PluginStorage interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Delete(key string)
	Clear()
}

// PluginContext carries a single playground run through the pipeline.
// Output is written by plugins that transform the input. Storage is
// swapped by the pipeline before each plugin runs, so a plugin only
// ever sees its own keys.
type PluginContext struct {
	JobID     string
	Input     interface{}
	Output    interface{}
	StartTime time.Time
	Storage   PluginStorage
}

// Initializer runs once at engine construction.
type Initializer interface {
	Initialize() error
}

// Destroyer runs at engine shutdown.
type Destroyer interface {
	Destroy() error
}

// Summarizer receives the ordered metrics a plugin produced during a run
// and returns the value placed under its name in result.summary.
type Summarizer interface {
	Summarize(metrics []interface{}) (interface{}, error)
}

// Evaluator is the required hook of a crawl plugin: produce metrics for
// one visited page.
type Evaluator interface {
	Plugin
	Evaluate(ctx context.Context, page *models.PageAnalysis, snapshot *PageSnapshot, loadTime time.Duration) (interface{}, error)
}

// BeforeCrawler runs on entry to StartJob, before any page is visited.
type BeforeCrawler interface {
	BeforeCrawl(job *models.Job) error
}

// AfterCrawler runs after all pages have been visited.
type AfterCrawler interface {
	AfterCrawl(job *models.Job) error
}

// BeforeEacher runs before a page is evaluated.
type BeforeEacher interface {
	BeforeEach(page *models.PageAnalysis) error
}

// AfterEacher runs after a page is evaluated.
type AfterEacher interface {
	AfterEach(page *models.PageAnalysis) error
}

// Executor is the required hook of a playground plugin: run once per job
// against the plugin context.
type Executor interface {
	Plugin
	Execute(ctx context.Context, pc *PluginContext) (interface{}, error)
}

// BeforeExecutor runs before Execute.
type BeforeExecutor interface {
	Before(ctx context.Context, pc *PluginContext) error
}

// AfterExecutor runs after Execute.
type AfterExecutor interface {
	After(ctx context.Context, pc *PluginContext) error
}
