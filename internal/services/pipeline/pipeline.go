package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// Pipeline drives an ordered set of plugins over pages (crawl) or a
// single context (playground). Every hook call is isolated: an error or
// panic from one plugin is recorded and the run moves on to the next
// plugin. Plugin failures never fail the job.
type Pipeline struct {
	events interfaces.EventService
	logger arbor.ILogger
}

// NewPipeline creates a pipeline publishing on the given bus
func NewPipeline(events interfaces.EventService, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		events: events,
		logger: logger,
	}
}

// Run captures what one pipeline pass produced: the per-plugin metrics
// of this pass, the plugins that completed, and the last plugin error.
type Run struct {
	Metrics   map[string]interface{}
	Completed []string
	Err       *models.ResultError
}

// ProgressTracker lets the owning engine persist per-plugin progress
// while Execute runs. It receives the plugin currently executing (""
// between plugins) and the completed list so far, and returns the job
// snapshot to attach to the next event, or nil to keep the current one.
type ProgressTracker func(currentPlugin string, completed []string) *models.Job

func track(tracker ProgressTracker, job *models.Job, current string, completed []string) *models.Job {
	if tracker == nil {
		return job
	}
	if updated := tracker(current, completed); updated != nil {
		return updated
	}
	return job
}

// safeCall invokes fn with panic containment so a misbehaving plugin
// cannot take down the engine.
func (p *Pipeline) safeCall(pluginName, hook string, fn func() error) error {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("plugin %s panicked in %s: %v", pluginName, hook, r)
			}
		}()
		err = fn()
	}()
	return err
}

func (p *Pipeline) recordFailure(run *Run, job *models.Job, pluginName string, err error) {
	p.logger.Warn().
		Str("job_id", job.ID).
		Str("plugin", pluginName).
		Err(err).
		Msg("Plugin failed")

	// Last writer wins: the most recent failure is the one surfaced.
	run.Err = &models.ResultError{
		Message:   err.Error(),
		Plugin:    pluginName,
		Timestamp: time.Now(),
	}

	p.events.Publish(interfaces.Event{
		Type:       interfaces.EventPluginError,
		JobID:      job.ID,
		Job:        job,
		PluginName: pluginName,
		Err:        err,
	})
}

// Execute runs the playground hooks (Before, Execute, After) of each
// plugin once against the shared context. Each plugin gets its own
// keyed storage for the duration of the run; tracker may be nil.
func (p *Pipeline) Execute(ctx context.Context, job *models.Job, pc *interfaces.PluginContext, plugins []interfaces.Plugin, tracker ProgressTracker) *Run {
	run := &Run{Metrics: make(map[string]interface{})}
	storages := NewStorageSet()

	for _, plugin := range plugins {
		executor, ok := plugin.(interfaces.Executor)
		if !ok {
			continue
		}
		name := plugin.Name()
		pc.Storage = storages.For(name)

		job = track(tracker, job, name, run.Completed)
		p.events.Publish(interfaces.Event{
			Type:       interfaces.EventPluginStart,
			JobID:      job.ID,
			Job:        job,
			PluginName: name,
		})

		if before, ok := plugin.(interfaces.BeforeExecutor); ok {
			if err := p.safeCall(name, "before", func() error { return before.Before(ctx, pc) }); err != nil {
				job = track(tracker, job, "", run.Completed)
				p.recordFailure(run, job, name, err)
				continue
			}
		}

		var metrics interface{}
		err := p.safeCall(name, "execute", func() error {
			var execErr error
			metrics, execErr = executor.Execute(ctx, pc)
			return execErr
		})
		if err != nil {
			job = track(tracker, job, "", run.Completed)
			p.recordFailure(run, job, name, err)
			continue
		}

		if after, ok := plugin.(interfaces.AfterExecutor); ok {
			if err := p.safeCall(name, "after", func() error { return after.After(ctx, pc) }); err != nil {
				p.recordFailure(run, job, name, err)
			}
		}

		run.Metrics[name] = metrics
		run.Completed = append(run.Completed, name)

		job = track(tracker, job, "", run.Completed)
		p.events.Publish(interfaces.Event{
			Type:       interfaces.EventPluginComplete,
			JobID:      job.ID,
			Job:        job,
			PluginName: name,
			Metrics:    metrics,
		})
	}

	return run
}

// EvaluatePage runs the crawl hooks (BeforeEach, Evaluate, AfterEach)
// of each plugin against one visited page.
func (p *Pipeline) EvaluatePage(ctx context.Context, job *models.Job, page *models.PageAnalysis, snapshot *interfaces.PageSnapshot, loadTime time.Duration, plugins []interfaces.Plugin) *Run {
	run := &Run{Metrics: make(map[string]interface{})}

	for _, plugin := range plugins {
		evaluator, ok := plugin.(interfaces.Evaluator)
		if !ok {
			continue
		}
		name := plugin.Name()

		p.events.Publish(interfaces.Event{
			Type:       interfaces.EventPluginStart,
			JobID:      job.ID,
			Job:        job,
			PluginName: name,
		})

		if before, ok := plugin.(interfaces.BeforeEacher); ok {
			if err := p.safeCall(name, "beforeEach", func() error { return before.BeforeEach(page) }); err != nil {
				p.recordFailure(run, job, name, err)
				continue
			}
		}

		var metrics interface{}
		err := p.safeCall(name, "evaluate", func() error {
			var evalErr error
			metrics, evalErr = evaluator.Evaluate(ctx, page, snapshot, loadTime)
			return evalErr
		})
		if err != nil {
			p.recordFailure(run, job, name, err)
			continue
		}

		if after, ok := plugin.(interfaces.AfterEacher); ok {
			if err := p.safeCall(name, "afterEach", func() error { return after.AfterEach(page) }); err != nil {
				p.recordFailure(run, job, name, err)
			}
		}

		run.Metrics[name] = metrics
		run.Completed = append(run.Completed, name)

		p.events.Publish(interfaces.Event{
			Type:       interfaces.EventPluginComplete,
			JobID:      job.ID,
			Job:        job,
			PluginName: name,
			Metrics:    metrics,
		})
	}

	return run
}

// BeforeCrawl runs the BeforeCrawl hook of each plugin that has one.
func (p *Pipeline) BeforeCrawl(job *models.Job, plugins []interfaces.Plugin) {
	for _, plugin := range plugins {
		hook, ok := plugin.(interfaces.BeforeCrawler)
		if !ok {
			continue
		}
		name := plugin.Name()
		if err := p.safeCall(name, "beforeCrawl", func() error { return hook.BeforeCrawl(job) }); err != nil {
			p.logger.Warn().Str("job_id", job.ID).Str("plugin", name).Err(err).Msg("beforeCrawl hook failed")
		}
	}
}

// AfterCrawl runs the AfterCrawl hook of each plugin that has one.
func (p *Pipeline) AfterCrawl(job *models.Job, plugins []interfaces.Plugin) {
	for _, plugin := range plugins {
		hook, ok := plugin.(interfaces.AfterCrawler)
		if !ok {
			continue
		}
		name := plugin.Name()
		if err := p.safeCall(name, "afterCrawl", func() error { return hook.AfterCrawl(job) }); err != nil {
			p.logger.Warn().Str("job_id", job.ID).Str("plugin", name).Err(err).Msg("afterCrawl hook failed")
		}
	}
}

// Summarize asks each plugin with a Summarize hook to fold the metrics
// it produced over the run into a summary value. A failing summarizer
// is logged and omitted from the summary.
func (p *Pipeline) Summarize(plugins []interfaces.Plugin, history map[string][]interface{}) map[string]interface{} {
	summary := make(map[string]interface{})

	for _, plugin := range plugins {
		summarizer, ok := plugin.(interfaces.Summarizer)
		if !ok {
			continue
		}
		name := plugin.Name()

		var value interface{}
		err := p.safeCall(name, "summarize", func() error {
			var sumErr error
			value, sumErr = summarizer.Summarize(history[name])
			return sumErr
		})
		if err != nil {
			p.logger.Warn().Str("plugin", name).Err(err).Msg("Summarize hook failed, omitting from summary")
			continue
		}
		summary[name] = value
	}

	return summary
}
