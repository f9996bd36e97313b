package playground

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
	"github.com/ternarybob/prowl/internal/services/pipeline"
)

const waitPollInterval = 10 * time.Millisecond

// Engine owns playground jobs: the plugin pipeline runs exactly once
// per job against the submitted input. Plugin failures are isolated and
// recorded on the result; the job itself still completes.
type Engine struct {
	store    interfaces.JobStore
	events   interfaces.EventService
	queue    interfaces.QueueService
	pipeline *pipeline.Pipeline
	registry *pipeline.Registry
	logger   arbor.ILogger
}

// NewEngine creates a playground engine
func NewEngine(store interfaces.JobStore, events interfaces.EventService, queue interfaces.QueueService, pipe *pipeline.Pipeline, registry *pipeline.Registry, logger arbor.ILogger) *Engine {
	return &Engine{
		store:    store,
		events:   events,
		queue:    queue,
		pipeline: pipe,
		registry: registry,
		logger:   logger,
	}
}

// CreateJob validates the config, snapshots it into a queued job and
// enqueues it.
func (e *Engine) CreateJob(config *models.PlaygroundConfig) (*models.Job, error) {
	if err := models.Validate(config); err != nil {
		return nil, err
	}
	if config.Input == nil {
		return nil, &models.ValidationError{Issues: []string{"input is required"}}
	}

	job := &models.Job{
		ID:   uuid.New().String(),
		Kind: models.JobKindPlayground,
		Config: models.JobConfig{
			Playground: config,
		},
		Progress: models.Progress{
			Status:    models.JobStatusQueued,
			StartTime: time.Now(),
		},
		MaxRetries: config.Retries,
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
		Int("plugins", len(config.Plugins)).
		Bool("async", config.Async).
		Msg("Playground job created")

	return job.Clone(), nil
}

// CreateAndWait creates the job and blocks until it reaches a terminal
// state. This backs the synchronous playground surface.
func (e *Engine) CreateAndWait(ctx context.Context, config *models.PlaygroundConfig) (*models.Job, error) {
	job, err := e.CreateJob(config)
	if err != nil {
		return nil, err
	}
	return e.WaitTerminal(ctx, job.ID)
}

// WaitTerminal polls until the job is terminal or the context expires.
func (e *Engine) WaitTerminal(ctx context.Context, id string) (*models.Job, error) {
	return e.waitFor(ctx, id, models.JobStatus.IsTerminal)
}

// WaitStarted polls until the job has left the queue (running or
// already terminal) or the context expires. The async playground
// surface acknowledges a job only once the dispatcher has picked it up.
func (e *Engine) WaitStarted(ctx context.Context, id string) (*models.Job, error) {
	return e.waitFor(ctx, id, func(s models.JobStatus) bool {
		return s != models.JobStatusQueued
	})
}

func (e *Engine) waitFor(ctx context.Context, id string, done func(models.JobStatus) bool) (*models.Job, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		job, err := e.store.Get(id)
		if err != nil {
			return nil, err
		}
		if done(job.Progress.Status) {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
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
// which aborts it before dispatch. Calling FailJob on an
// already-terminal job is a no-op returning the current state.
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

	e.logger.Warn().Str("job_id", id).Err(cause).Msg("Playground job failed")
	return job, nil
}

// StartJob transitions the job to running and executes the pipeline
// once over the input.
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

	config := job.Config.Playground
	if config == nil {
		failed, _ := e.FailJob(id, fmt.Errorf("job %s has no playground config", id))
		return failed, fmt.Errorf("job %s has no playground config", id)
	}

	plugins := e.registry.Select(config.Plugins)

	pc := &interfaces.PluginContext{
		JobID:     id,
		Input:     config.Input,
		StartTime: job.Progress.StartTime,
	}

	// The tracker persists per-plugin progress so events and webhooks
	// observe completions as they happen, not only at the end.
	tracker := func(current string, completed []string) *models.Job {
		updated, err := e.store.Update(id, func(j *models.Job) error {
			j.Progress.CurrentPlugin = current
			j.Progress.CompletedPlugins = append([]string(nil), completed...)
			return nil
		})
		if err != nil {
			return nil
		}
		return updated
	}

	run := e.pipeline.Execute(ctx, job, pc, plugins, tracker)

	history := make(map[string][]interface{}, len(run.Metrics))
	for name, metrics := range run.Metrics {
		history[name] = append(history[name], metrics)
	}
	summary := e.pipeline.Summarize(plugins, history)

	job, err = e.store.Update(id, func(j *models.Job) error {
		if len(run.Metrics) > 0 {
			j.Result.Metrics = append(j.Result.Metrics, run.Metrics)
		}
		if len(summary) > 0 {
			j.Result.Summary = summary
		}
		if run.Err != nil {
			j.Result.Error = run.Err
		}
		j.Progress.CompletedPlugins = run.Completed
		j.Progress.CurrentPlugin = ""
		j.Progress.Status = models.JobStatusCompleted
		now := time.Now()
		j.Progress.EndTime = &now
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
		Int("completed_plugins", len(job.Progress.CompletedPlugins)).
		Msg("Playground job completed")

	return job, nil
}
