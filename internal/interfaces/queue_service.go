package interfaces

import (
	"errors"

	"github.com/ternarybob/prowl/internal/models"
)

// ErrQueueFull is returned by Enqueue once the configured depth limit is
// reached, so the HTTP layer can answer 503.
var ErrQueueFull = errors.New("job queue is full")

// QueueService is the FIFO single-worker dispatcher. Enqueue never
// blocks; a background dispatcher pops one job at a time and hands it to
// the engine registered for the job's kind.
type QueueService interface {
	// Enqueue appends the job ID and wakes the dispatcher if idle.
	Enqueue(job *models.Job) error

	// Length returns the number of queued (not yet dispatched) jobs.
	Length() int

	// IsProcessing reports whether the dispatcher currently holds the
	// execution slot.
	IsProcessing() bool

	// Position returns the 1-based queue position of a job, or 0 if the
	// job is not waiting in the queue.
	Position(jobID string) int

	// Start launches the dispatcher goroutine.
	Start()

	// Stop drains the dispatcher and prevents further dispatches.
	Stop()
}
