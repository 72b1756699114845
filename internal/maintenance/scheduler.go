// Package maintenance runs periodic housekeeping jobs.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/marketplace-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const pruneTimeout = 30 * time.Second

// Scheduler prunes activity events older than the retention window.
type Scheduler struct {
	cron      *cron.Cron
	eventSvc  services.EventServiceProvider
	retention time.Duration
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(eventSvc services.EventServiceProvider, retention time.Duration) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		eventSvc:  eventSvc,
		retention: retention,
		now:       time.Now,
	}
}

// Start schedules the prune job with a standard cron spec or descriptor such
// as "@daily". An empty spec or non-positive retention disables pruning.
func (s *Scheduler) Start(spec string) error {
	if spec == "" || s.retention <= 0 {
		log.Info().Msg("Event pruning disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(spec, s.runPrune); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	s.cron.Start()
	log.Info().Str("schedule", spec).Dur("retention", s.retention).Msg("Starting event pruning scheduler")
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped event pruning scheduler")
}

// PruneEvents deletes events older than the retention window.
func (s *Scheduler) PruneEvents(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	return s.eventSvc.PruneEventsBefore(ctx, cutoff)
}

func (s *Scheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	removed, err := s.PruneEvents(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to prune events")
		return
	}
	log.Info().Int64("removed", removed).Msg("Scheduler: pruned old events")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
