package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/prowl/internal/models"
)

// ErrJobNotFound is returned when a job ID is unknown to the store.
var ErrJobNotFound = errors.New("job not found")

// ErrJobTerminal is returned when a mutation targets a job that has
// already reached a terminal state.
var ErrJobTerminal = errors.New("job is in a terminal state")

// JobStore is the in-memory registry of jobs keyed by ID.
// Mutations are serialized per store; readers receive clones so a Job is
// never observed mid-mutation.
type JobStore interface {
	// Insert adds a new job. The ID must be unique for the process lifetime.
	Insert(job *models.Job) error

	// Get returns a clone of the job, or ErrJobNotFound.
	Get(id string) (*models.Job, error)

	// Update applies mutate under the store's write lock and bumps
	// UpdatedAt. Returns ErrJobTerminal without calling mutate if the job
	// is already terminal, unless the mutation is the terminal transition
	// itself (the engine gates legality via JobStatus.CanTransitionTo).
	Update(id string, mutate func(job *models.Job) error) (*models.Job, error)

	// List returns clones of all jobs, unordered.
	List() []*models.Job

	// Delete removes a job (used by the TTL sweeper only).
	Delete(id string)

	// Count returns the number of stored jobs.
	Count() int
}

// JobEngine is the shared contract of the crawl and playground engines.
type JobEngine interface {
	// StartJob transitions queued -> running, initializes an empty result,
	// emits job_start and runs the pipeline. On success the job ends
	// completed; an error return means the run itself failed and the job
	// has already been marked failed via FailJob.
	StartJob(ctx context.Context, id string) (*models.Job, error)

	// GetJob returns a snapshot of the job, or ErrJobNotFound.
	GetJob(id string) (*models.Job, error)

	// GetProgress returns the job's progress snapshot, or ErrJobNotFound.
	GetProgress(id string) (*models.Progress, error)

	// FailJob performs the terminal transition to failed, stamps EndTime,
	// records the error and emits job_error. Calling it on a job that is
	// already terminal is a no-op.
	FailJob(id string, cause error) (*models.Job, error)
}
