package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
)

// Sweeper periodically removes terminal jobs older than the configured
// TTL so a long-running process does not grow without bound. Queued and
// running jobs are never swept.
type Sweeper struct {
	store    interfaces.JobStore
	ttl      time.Duration
	schedule string
	cron     *cron.Cron
	logger   arbor.ILogger
}

// NewSweeper creates a sweeper; a zero ttl disables sweeping entirely.
func NewSweeper(store interfaces.JobStore, ttl time.Duration, schedule string, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the sweep on the cron schedule
func (s *Sweeper) Start() error {
	if s.ttl <= 0 {
		s.logger.Debug().Msg("Job TTL disabled, sweeper not started")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()

	s.logger.Info().
		Str("schedule", s.schedule).
		Str("ttl", s.ttl.String()).
		Msg("Job sweeper started")

	return nil
}

// Stop halts the cron scheduler
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep removes terminal jobs whose last update is older than the TTL
func (s *Sweeper) Sweep() {
	cutoff := time.Now().Add(-s.ttl)
	removed := 0

	for _, job := range s.store.List() {
		if !job.Progress.Status.IsTerminal() {
			continue
		}
		if job.UpdatedAt.After(cutoff) {
			continue
		}
		s.store.Delete(job.ID)
		removed++
	}

	if removed > 0 {
		s.logger.Info().
			Int("removed", removed).
			Int("remaining", s.store.Count()).
			Msg("Swept expired jobs")
	}
}
