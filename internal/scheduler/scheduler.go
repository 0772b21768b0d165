// Package scheduler runs the notification trigger pipeline on a cron
// schedule. It is a thin wrapper over robfig/cron: one entry, skip-if-running
// overlap protection, and structured logging of each run's summary.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/fitstack/go-fitness-backend/internal/services"
)

// Runner is the pipeline entry point the scheduler invokes.
type Runner interface {
	RunTriggers(ctx context.Context) (*services.RunSummary, error)
}

// Scheduler owns the cron loop for the trigger pipeline.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	spec    string
	timeout time.Duration

	// running guards against overlapping runs when a run outlasts the
	// schedule interval.
	running atomic.Bool
}

// New constructs a Scheduler that invokes runner per the cron spec. Each run
// is bounded by timeout; zero means one hour.
func New(spec string, runner Runner, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		spec:    spec,
		timeout: timeout,
	}
}

// Start registers the pipeline job and starts the cron loop. It fails only
// on an invalid spec; an already validated config makes this effectively
// infallible at runtime.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Str("spec", s.spec).Msg("trigger pipeline scheduled")
	return nil
}

// Stop halts the cron loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("trigger pipeline scheduler stopped")
}

// runOnce executes one pipeline run unless a previous run is still active.
func (s *Scheduler) runOnce() {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("trigger pipeline run skipped: previous run still active")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	summary, err := s.runner.RunTriggers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("trigger pipeline run failed")
		return
	}
	log.Info().
		Int("triggers", summary.TriggersEvaluated).
		Int("logs_written", summary.LogsWritten).
		Int("push_batches", summary.PushBatches).
		Int("errors", len(summary.Errors)).
		Dur("took", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("trigger pipeline run complete")
}
