package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/common"
	"github.com/ternarybob/prowl/internal/handlers"
	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
	crawlplugins "github.com/ternarybob/prowl/internal/plugins/crawl"
	playgroundplugins "github.com/ternarybob/prowl/internal/plugins/playground"
	"github.com/ternarybob/prowl/internal/services/crawler"
	"github.com/ternarybob/prowl/internal/services/events"
	"github.com/ternarybob/prowl/internal/services/jobs"
	"github.com/ternarybob/prowl/internal/services/pipeline"
	"github.com/ternarybob/prowl/internal/services/playground"
	"github.com/ternarybob/prowl/internal/services/queue"
	"github.com/ternarybob/prowl/internal/services/webhook"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Core services
	JobStore     interfaces.JobStore
	EventService interfaces.EventService
	Queue        *queue.Service
	Sweeper      *jobs.Sweeper
	Emitter      *webhook.Emitter
	Driver       interfaces.PageDriver

	// Engines
	CrawlEngine      *crawler.Engine
	PlaygroundEngine *playground.Engine

	// Plugin registries
	CrawlRegistry      *pipeline.Registry
	PlaygroundRegistry *pipeline.Registry

	// HTTP handlers
	CrawlHandler      *handlers.CrawlHandler
	PlaygroundHandler *handlers.PlaygroundHandler
	APIHandler        *handlers.APIHandler
	WSHandler         *handlers.WebSocketHandler
}

// New constructs and wires the application. Construction order matters:
// store and bus first, then pipelines and engines, then the queue
// bindings and the outbound subscribers.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	a.JobStore = jobs.NewStore(logger)
	a.EventService = events.NewService(logger)
	a.Queue = queue.NewService(config.Queue.MaxDepth, logger)
	a.Sweeper = jobs.NewSweeper(a.JobStore, config.Jobs.TTLDuration(), config.Jobs.SweepSchedule, logger)

	driver, err := crawler.NewChromeDriver(config.Crawler, logger)
	if err != nil {
		return nil, fmt.Errorf("init browser pool: %w", err)
	}
	a.Driver = driver

	pipe := pipeline.NewPipeline(a.EventService, logger)

	a.CrawlRegistry = pipeline.NewRegistry(logger)
	crawlPlugins := []interfaces.Plugin{
		crawlplugins.NewLoadTimePlugin(),
		crawlplugins.NewPageMetaPlugin(),
		crawlplugins.NewWordCountPlugin(),
		crawlplugins.NewLinksPlugin(),
		crawlplugins.NewMarkdownPlugin(),
	}
	for _, plugin := range crawlPlugins {
		if err := a.CrawlRegistry.Register(plugin); err != nil {
			return nil, err
		}
	}

	a.PlaygroundRegistry = pipeline.NewRegistry(logger)
	playgroundPlugins := []interfaces.Plugin{
		playgroundplugins.NewReversePlugin(),
		playgroundplugins.NewUppercasePlugin(),
		playgroundplugins.NewWordCountPlugin(),
	}
	for _, plugin := range playgroundPlugins {
		if err := a.PlaygroundRegistry.Register(plugin); err != nil {
			return nil, err
		}
	}

	// Plugin Initialize hooks run exactly once, here.
	if err := a.CrawlRegistry.Initialize(); err != nil {
		return nil, err
	}
	if err := a.PlaygroundRegistry.Initialize(); err != nil {
		return nil, err
	}

	a.CrawlEngine = crawler.NewEngine(a.JobStore, a.EventService, a.Queue, pipe, a.CrawlRegistry.Select(nil), driver, logger)
	a.PlaygroundEngine = playground.NewEngine(a.JobStore, a.EventService, a.Queue, pipe, a.PlaygroundRegistry, logger)

	a.Queue.RegisterEngine(models.JobKindCrawl, a.CrawlEngine)
	a.Queue.RegisterEngine(models.JobKindPlayground, a.PlaygroundEngine)

	a.Emitter = webhook.NewEmitter(config.Webhook.RequestTimeoutDuration(), logger)
	a.Emitter.Subscribe(a.EventService)

	a.CrawlHandler = handlers.NewCrawlHandler(a.CrawlEngine, a.Queue, logger)
	a.PlaygroundHandler = handlers.NewPlaygroundHandler(a.PlaygroundEngine, logger)
	a.APIHandler = handlers.NewAPIHandler(a.JobStore, a.Queue, logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, logger)

	return a, nil
}

// Start launches the background components
func (a *App) Start() error {
	a.Queue.Start()
	if err := a.Sweeper.Start(); err != nil {
		return fmt.Errorf("start job sweeper: %w", err)
	}
	a.Logger.Info().Msg("Application started")
	return nil
}

// Close shuts the application down in reverse construction order
func (a *App) Close() {
	a.Queue.Stop()
	a.Sweeper.Stop()
	a.Emitter.Wait()
	a.WSHandler.Shutdown()

	a.CrawlRegistry.Destroy()
	a.PlaygroundRegistry.Destroy()

	if err := a.Driver.Shutdown(); err != nil {
		a.Logger.Warn().Err(err).Msg("Browser pool shutdown failed")
	}
	if err := a.EventService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Event service close failed")
	}

	a.Logger.Info().Msg("Application stopped")
}
