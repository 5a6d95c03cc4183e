package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/quill-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TokenPurger deletes refresh tokens whose expiry has passed.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron     *cron.Cron
	purger   TokenPurger
	eventSvc services.EventServiceProvider
	now      func() time.Time
	timeout  time.Duration
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// NewScheduler creates a new scheduler that purges expired tokens on purgeSpec,
// a standard cron expression or descriptor such as "@hourly".
func NewScheduler(purgeSpec string, purger TokenPurger, eventSvc services.EventServiceProvider) (*Scheduler, error) {
	logger := cronLogger{logger: log.With().Str("component", "scheduler").Logger()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		purger:   purger,
		eventSvc: eventSvc,
		now:      time.Now,
		timeout:  time.Minute,
	}

	if _, err := s.cron.AddFunc(purgeSpec, s.runPurge); err != nil {
		return nil, fmt.Errorf("invalid token purge schedule %q: %w", purgeSpec, err)
	}
	return s, nil
}

// Run starts the scheduler in its own goroutine.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.PurgeExpiredTokens(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduler: token purge failed")
	}
}

// PurgeExpiredTokens deletes expired refresh tokens now and returns how many were removed.
func (s *Scheduler) PurgeExpiredTokens(ctx context.Context) (int, error) {
	removed, err := s.purger.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Scheduler: purged expired refresh tokens")
		services.RecordEvent(ctx, s.eventSvc, services.EventTokensPurge, "info",
			fmt.Sprintf("Purged %d expired refresh tokens.", removed), "")
	}
	return removed, nil
}
