package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
	"github.com/ternarybob/prowl/internal/models"
)

// Store is the in-memory job registry. All reads return clones; all
// mutations go through Update so UpdatedAt tracking and the terminal
// guard live in one place.
type Store struct {
	jobs   map[string]*models.Job
	mu     sync.RWMutex
	logger arbor.ILogger
}

// NewStore creates an empty job store
func NewStore(logger arbor.ILogger) *Store {
	return &Store{
		jobs:   make(map[string]*models.Job),
		logger: logger,
	}
}

// Insert adds a new job to the store
func (s *Store) Insert(job *models.Job) error {
	if job == nil {
		return fmt.Errorf("cannot insert nil job")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	s.jobs[job.ID] = job.Clone()

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Msg("Job inserted")

	return nil
}

// Get returns a clone of the job
func (s *Store) Get(id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return job.Clone(), nil
}

// Update applies mutate under the write lock and bumps UpdatedAt.
// Terminal jobs are immutable: Update refuses without calling mutate.
func (s *Store) Update(id string, mutate func(job *models.Job) error) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}

	if job.Progress.Status.IsTerminal() {
		return nil, interfaces.ErrJobTerminal
	}

	if err := mutate(job); err != nil {
		return nil, err
	}
	job.UpdatedAt = time.Now()

	return job.Clone(), nil
}

// List returns clones of all jobs, unordered
func (s *Store) List() []*models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out
}

// Delete removes a job from the store
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, id)
}

// Count returns the number of stored jobs
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.jobs)
}
