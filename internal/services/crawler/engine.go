package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
	"github.com/ternarybob/prowl/internal/services/pipeline"
)

const (
	progressTickInterval = 10 * time.Second
	progressEveryNPages  = 10
)

// Engine owns crawl jobs: creation, the page traversal loop, progress
// accounting and terminal transitions. One crawl runs at a time (the
// queue serializes dispatch); inside a crawl up to maxConcurrency
// workers pull from the frontier.
type Engine struct {
	store    interfaces.JobStore
	events   interfaces.EventService
	queue    interfaces.QueueService
	pipeline *pipeline.Pipeline
	plugins  []interfaces.Plugin
	driver   interfaces.PageDriver
	logger   arbor.ILogger
}

// NewEngine creates a crawl engine
func NewEngine(store interfaces.JobStore, events interfaces.EventService, queue interfaces.QueueService, pipeline *pipeline.Pipeline, plugins []interfaces.Plugin, driver interfaces.PageDriver, logger arbor.ILogger) *Engine {
	return &Engine{
		store:    store,
		events:   events,
		queue:    queue,
		pipeline: pipeline,
		plugins:  plugins,
		driver:   driver,
		logger:   logger,
	}
}

// CreateJob validates the config, snapshots it into a queued job and
// enqueues it. The returned job is already visible via GetJob.
func (e *Engine) CreateJob(config *models.CrawlConfig) (*models.Job, error) {
	if err := models.Validate(config); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	filter, err := buildURLFilter(config)
	if err != nil {
		return nil, &models.ValidationError{Issues: []string{err.Error()}}
	}
	config.URLFilter = filter

	job := &models.Job{
		ID:   uuid.New().String(),
		Kind: models.JobKindCrawl,
		Config: models.JobConfig{
			Crawl: config,
		},
		Progress: models.Progress{
			Status:    models.JobStatusQueued,
			StartTime: time.Now(),
		},
	}

	if err := e.store.Insert(job); err != nil {
		return nil, err
	}

	if err := e.queue.Enqueue(job); err != nil {
		e.store.Delete(job.ID)
		return nil, err
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Str("url", config.URL).
		Int("max_depth", config.MaxDepth).
		Int("max_pages", config.MaxPages).
		Msg("Crawl job created")

	return job.Clone(), nil
}

// buildURLFilter combines the regex include/exclude patterns and any
// in-process filter into one predicate.
func buildURLFilter(config *models.CrawlConfig) (models.URLFilter, error) {
	var includes, excludes []*regexp.Regexp
	for _, pattern := range config.IncludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %v", pattern, err)
		}
		includes = append(includes, re)
	}
	for _, pattern := range config.ExcludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %v", pattern, err)
		}
		excludes = append(excludes, re)
	}

	custom := config.URLFilter
	if len(includes) == 0 && len(excludes) == 0 && custom == nil {
		return nil, nil
	}

	return func(u string) bool {
		for _, re := range excludes {
			if re.MatchString(u) {
				return false
			}
		}
		if len(includes) > 0 {
			matched := false
			for _, re := range includes {
				if re.MatchString(u) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		if custom != nil {
			return custom(u)
		}
		return true
	}, nil
}

// GetJob returns a snapshot of the job
func (e *Engine) GetJob(id string) (*models.Job, error) {
	return e.store.Get(id)
}

// GetProgress returns the job's progress snapshot
func (e *Engine) GetProgress(id string) (*models.Progress, error) {
	job, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	progress := job.Progress
	return &progress, nil
}

// FailJob force-fails the job from any non-terminal state. The normal
// path is running to failed; a queued job may also be failed directly,
// which aborts it before dispatch (for example when the queue cannot
// hand it to a worker). Calling FailJob on an already-terminal job is a
// no-op returning the current state.
func (e *Engine) FailJob(id string, cause error) (*models.Job, error) {
	job, err := e.store.Update(id, func(j *models.Job) error {
		j.Progress.Status = models.JobStatusFailed
		now := time.Now()
		j.Progress.EndTime = &now
		j.Progress.Error = cause.Error()
		return nil
	})
	if errors.Is(err, interfaces.ErrJobTerminal) {
		return e.store.Get(id)
	}
	if err != nil {
		return nil, err
	}

	e.events.Publish(interfaces.Event{
		Type:  interfaces.EventJobError,
		JobID: id,
		Job:   job,
		Err:   cause,
	})

	e.logger.Warn().Str("job_id", id).Err(cause).Msg("Crawl job failed")
	return job, nil
}

// StartJob transitions the job to running and drives the crawl to a
// terminal state. Page-level failures are recorded and non-fatal; an
// error return means the run itself could not proceed and the job has
// been marked failed.
func (e *Engine) StartJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := e.store.Update(id, func(j *models.Job) error {
		if !j.Progress.Status.CanTransitionTo(models.JobStatusRunning) {
			return fmt.Errorf("job cannot start from status %s", j.Progress.Status)
		}
		j.Progress.Status = models.JobStatusRunning
		j.Result = &models.JobResult{Metrics: []map[string]interface{}{}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.events.Publish(interfaces.Event{
		Type:  interfaces.EventJobStart,
		JobID: id,
		Job:   job,
	})

	if err := e.crawl(ctx, job); err != nil {
		failed, _ := e.FailJob(id, err)
		return failed, err
	}

	job, err = e.store.Update(id, func(j *models.Job) error {
		j.Progress.Status = models.JobStatusCompleted
		now := time.Now()
		j.Progress.EndTime = &now
		j.Progress.CurrentURL = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.events.Publish(interfaces.Event{
		Type:  interfaces.EventJobComplete,
		JobID: id,
		Job:   job,
	})

	e.logger.Info().
		Str("job_id", id).
		Int("pages", job.Progress.PagesAnalyzed).
		Int("failed", job.Progress.FailedURLs).
		Msg("Crawl job completed")

	return job, nil
}

// crawlRun carries the per-run machinery shared by the workers.
type crawlRun struct {
	jobID    string
	config   *models.CrawlConfig
	frontier *Frontier
	limiter  *rate.Limiter
	robots   *RobotsChecker

	historyMu sync.Mutex
	history   map[string][]interface{}
	pageCount int
}

// syncCounters refreshes the frontier-derived progress counters. After
// every update uniqueUrls + skippedUrls + failedUrls == totalPages:
// admitted pages count as unique, filter- and robots-rejected pages as
// skipped, and failed navigations move from unique to failed.
func (run *crawlRun) syncCounters(j *models.Job) {
	admitted, skipped := run.frontier.Stats()
	j.Progress.UniqueURLs = admitted
	j.Progress.SkippedURLs = skipped
	j.Progress.TotalPages = admitted + skipped + j.Progress.FailedURLs
}

// newPageLimiter converts a per-minute request budget into a token
// bucket refilling at budget/60 tokens per second with a full-budget
// burst.
func newPageLimiter(requestsPerMinute int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
}

func (e *Engine) crawl(ctx context.Context, job *models.Job) error {
	config := job.Config.Crawl
	if config == nil {
		return fmt.Errorf("job %s has no crawl config", job.ID)
	}

	seed, err := NormalizeURL(config.URL)
	if err != nil {
		return fmt.Errorf("invalid crawl URL: %w", err)
	}
	seedURL, _ := url.Parse(seed)

	run := &crawlRun{
		jobID:    job.ID,
		config:   config,
		frontier: NewFrontier(seedURL.Hostname(), config.MaxDepth, config.MaxPages, config.URLFilter),
		limiter:  newPageLimiter(config.MaxRequestsPerMinute),
		history:  make(map[string][]interface{}),
	}

	if config.RespectRobotsTxt {
		userAgent := config.UserAgent
		if userAgent == "" {
			userAgent = "Prowl-Crawler/1.0"
		}
		run.robots = NewRobotsChecker(userAgent, e.logger)
	}

	e.pipeline.BeforeCrawl(job, e.plugins)

	run.frontier.Add(seed, 0)
	if config.SitemapURL != "" {
		e.seedFromSitemap(ctx, run)
	}

	stopTicker := make(chan struct{})
	go e.progressTicker(run.jobID, stopTicker)

	var wg sync.WaitGroup
	for i := 0; i < config.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, run)
		}()
	}
	wg.Wait()
	close(stopTicker)

	if latest, err := e.store.Get(job.ID); err == nil {
		e.pipeline.AfterCrawl(latest, e.plugins)
	}

	summary := e.pipeline.Summarize(e.plugins, run.history)
	_, err = e.store.Update(job.ID, func(j *models.Job) error {
		if j.Result == nil {
			j.Result = &models.JobResult{Metrics: []map[string]interface{}{}}
		}
		if len(summary) > 0 {
			j.Result.Summary = summary
		}
		run.syncCounters(j)
		return nil
	})
	return err
}

func (e *Engine) seedFromSitemap(ctx context.Context, run *crawlRun) {
	userAgent := run.config.UserAgent
	if userAgent == "" {
		userAgent = "Prowl-Crawler/1.0"
	}

	urls, err := FetchSitemap(ctx, run.config.SitemapURL, userAgent)
	if err != nil {
		e.logger.Warn().
			Str("job_id", run.jobID).
			Str("sitemap", run.config.SitemapURL).
			Err(err).
			Msg("Sitemap fetch failed, continuing with seed URL only")
		return
	}

	added := 0
	for _, u := range urls {
		if run.frontier.Add(u, 1) {
			added++
		}
	}
	e.logger.Info().
		Str("job_id", run.jobID).
		Int("listed", len(urls)).
		Int("added", added).
		Msg("Seeded frontier from sitemap")
}

// progressTicker publishes a periodic progress event while the crawl
// runs.
func (e *Engine) progressTicker(jobID string, stop <-chan struct{}) {
	ticker := time.NewTicker(progressTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.publishProgress(jobID)
		}
	}
}

func (e *Engine) publishProgress(jobID string) {
	job, err := e.store.Get(jobID)
	if err != nil || job.Progress.Status != models.JobStatusRunning {
		return
	}
	e.events.Publish(interfaces.Event{
		Type:  interfaces.EventProgress,
		JobID: jobID,
		Job:   job,
	})
}

func (e *Engine) worker(ctx context.Context, run *crawlRun) {
	for {
		pageURL, depth, ok := run.frontier.Next()
		if !ok {
			return
		}
		e.processPage(ctx, run, pageURL, depth)
		run.frontier.Done()
	}
}

func (e *Engine) processPage(ctx context.Context, run *crawlRun, pageURL string, depth int) {
	if err := run.limiter.Wait(ctx); err != nil {
		return
	}

	if run.robots != nil && !run.robots.Allowed(ctx, pageURL) {
		e.logger.Debug().Str("job_id", run.jobID).Str("url", pageURL).Msg("Blocked by robots.txt")
		run.frontier.Skip()
		_, _ = e.store.Update(run.jobID, func(j *models.Job) error {
			run.syncCounters(j)
			return nil
		})
		return
	}

	job, err := e.store.Update(run.jobID, func(j *models.Job) error {
		j.Progress.CurrentURL = pageURL
		j.Progress.CurrentDepth = depth
		run.syncCounters(j)
		return nil
	})
	if err != nil {
		return
	}

	e.events.Publish(interfaces.Event{
		Type:  interfaces.EventPageStart,
		JobID: run.jobID,
		Job:   job,
		URL:   pageURL,
	})

	navCtx, cancel := context.WithTimeout(ctx, run.config.Timeout.PageTimeout())
	snapshot, err := e.driver.Navigate(navCtx, pageURL, run.config.Headers)
	cancel()

	if err != nil {
		e.recordPageFailure(run, pageURL, depth, err)
		return
	}

	page := &models.PageAnalysis{
		URL:        snapshot.URL,
		Title:      snapshot.Title,
		StatusCode: snapshot.StatusCode,
		Depth:      depth,
		LoadTimeMs: snapshot.LoadTime.Milliseconds(),
	}

	result := e.pipeline.EvaluatePage(ctx, job, page, snapshot, snapshot.LoadTime, e.plugins)
	page.Metrics = result.Metrics

	run.historyMu.Lock()
	for name, metrics := range result.Metrics {
		run.history[name] = append(run.history[name], metrics)
	}
	run.historyMu.Unlock()

	job, err = e.store.Update(run.jobID, func(j *models.Job) error {
		j.Result.Pages = append(j.Result.Pages, *page)
		if len(result.Metrics) > 0 {
			j.Result.Metrics = append(j.Result.Metrics, result.Metrics)
		}
		if result.Err != nil {
			j.Result.Error = result.Err
		}
		j.Progress.PagesAnalyzed++
		run.syncCounters(j)
		return nil
	})
	if err != nil {
		return
	}

	e.events.Publish(interfaces.Event{
		Type:  interfaces.EventPageComplete,
		JobID: run.jobID,
		Job:   job,
		Page:  page,
	})

	run.historyMu.Lock()
	run.pageCount++
	milestone := run.pageCount%progressEveryNPages == 0
	run.historyMu.Unlock()
	if milestone {
		e.publishProgress(run.jobID)
	}

	if depth < run.config.MaxDepth {
		for _, link := range snapshot.Links {
			resolved, err := ResolveURL(snapshot.URL, link)
			if err != nil {
				continue
			}
			run.frontier.Add(resolved, depth+1)
		}
	}
}

func (e *Engine) recordPageFailure(run *crawlRun, pageURL string, depth int, cause error) {
	page := &models.PageAnalysis{
		URL:   pageURL,
		Depth: depth,
		Error: cause.Error(),
	}

	run.frontier.Drop()
	job, err := e.store.Update(run.jobID, func(j *models.Job) error {
		j.Result.Pages = append(j.Result.Pages, *page)
		j.Progress.FailedURLs++
		run.syncCounters(j)
		return nil
	})
	if err != nil {
		return
	}

	e.events.Publish(interfaces.Event{
		Type:  interfaces.EventPageError,
		JobID: run.jobID,
		Job:   job,
		URL:   pageURL,
		Err:   cause,
	})

	e.logger.Debug().
		Str("job_id", run.jobID).
		Str("url", pageURL).
		Err(cause).
		Msg("Page navigation failed")
}
