package queue

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

type queuedJob struct {
	id   string
	kind models.JobKind
}

// Service is the single-worker FIFO dispatcher. Enqueue never blocks
// the caller: entries are appended under a mutex and a buffered signal
// channel wakes the dispatcher goroutine, which pops one job at a time
// and hands it to the engine registered for the job's kind.
type Service struct {
	pending    []queuedJob
	maxDepth   int
	engines    map[models.JobKind]interfaces.JobEngine
	processing bool
	mu         sync.Mutex

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	logger arbor.ILogger
}

// NewService creates a queue; maxDepth 0 means unbounded.
func NewService(maxDepth int, logger arbor.ILogger) *Service {
	return &Service{
		maxDepth: maxDepth,
		engines:  make(map[models.JobKind]interfaces.JobEngine),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// RegisterEngine binds an engine to a job kind. Must be called before
// Start; jobs of unregistered kinds are dropped with an error log.
func (s *Service) RegisterEngine(kind models.JobKind, engine interfaces.JobEngine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines[kind] = engine
}

// Enqueue appends the job and wakes the dispatcher
func (s *Service) Enqueue(job *models.Job) error {
	s.mu.Lock()
	if s.maxDepth > 0 && len(s.pending) >= s.maxDepth {
		s.mu.Unlock()
		s.logger.Warn().
			Str("job_id", job.ID).
			Int("max_depth", s.maxDepth).
			Msg("Queue full, rejecting job")
		return interfaces.ErrQueueFull
	}
	s.pending = append(s.pending, queuedJob{id: job.ID, kind: job.Kind})
	position := len(s.pending)
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Int("position", position).
		Msg("Job enqueued")

	// Non-blocking: the channel holds one pending wakeup at most.
	select {
	case s.wake <- struct{}{}:
	default:
	}

	return nil
}

// Length returns the number of jobs waiting for dispatch
func (s *Service) Length() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// IsProcessing reports whether a job currently holds the execution slot
func (s *Service) IsProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Position returns the 1-based queue position, or 0 if not queued
func (s *Service) Position(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.pending {
		if entry.id == jobID {
			return i + 1
		}
	}
	return 0
}

// Start launches the dispatcher goroutine
func (s *Service) Start() {
	go s.run()
	s.logger.Info().Int("max_depth", s.maxDepth).Msg("Queue dispatcher started")
}

// Stop signals the dispatcher and waits for it to exit. A job already
// dispatched runs to completion; remaining queued jobs stay queued.
func (s *Service) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Info().Int("remaining", s.Length()).Msg("Queue dispatcher stopped")
}

func (s *Service) run() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		for {
			select {
			case <-s.stop:
				return
			default:
			}

			entry, engine, ok := s.next()
			if !ok {
				break
			}
			s.dispatch(entry, engine)
		}
	}
}

// next pops the head of the queue and claims the execution slot.
// Entries whose kind has no registered engine are dropped.
func (s *Service) next() (queuedJob, interfaces.JobEngine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.pending) > 0 {
		entry := s.pending[0]
		s.pending = s.pending[1:]

		engine, ok := s.engines[entry.kind]
		if !ok {
			s.logger.Error().
				Str("job_id", entry.id).
				Str("kind", string(entry.kind)).
				Msg("No engine registered for job kind, dropping")
			continue
		}

		s.processing = true
		return entry, engine, true
	}
	return queuedJob{}, nil, false
}

func (s *Service) dispatch(entry queuedJob, engine interfaces.JobEngine) {
	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	s.logger.Info().Str("job_id", entry.id).Msg("Dispatching job")

	// StartJob marks the job failed itself on error; the queue only logs
	// so one bad job never stalls the dispatcher.
	if _, err := engine.StartJob(context.Background(), entry.id); err != nil {
		s.logger.Warn().
			Str("job_id", entry.id).
			Err(err).
			Msg("Job run failed")
	}
}
