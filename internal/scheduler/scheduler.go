package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is a unit of background work.
type Job func(ctx context.Context) error

// Scheduler runs jobs on standard five-field cron expressions.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// New creates a stopped scheduler. Each job run gets its own context bounded
// by timeout and cancelled by Stop.
func New(timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
		),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// Add registers job under name for the given cron expression.
func (s *Scheduler) Add(name, expr string, job Job) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q for %s: %w", expr, name, err)
	}

	_, err := s.cron.AddFunc(expr, func() {
		s.run(name, job)
	})
	return err
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	log.Info().Str("job", name).Msg("Scheduler: executing job")
	if err := job(ctx); err != nil {
		log.Error().Err(err).Str("job", name).Msg("Scheduler: job failed")
		return
	}
	log.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("Scheduler: job finished")
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Str("component", "cron").Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Str("component", "cron").Fields(keysAndValues).Msg(msg)
}
