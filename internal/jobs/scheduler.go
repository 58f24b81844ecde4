package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"ingetin/internal/logging"
)

// Parser accepts 5 or 6 field specs (seconds optional) and descriptors such
// as "@every 1m".
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler fires the jobs on their cron schedules. A job that is still
// running when its next tick comes is skipped for that tick, and a panic in
// a job is recovered and logged.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  *slog.Logger
}

func NewScheduler(log *slog.Logger) *Scheduler {
	log = logging.Or(log).With("component", "scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx: context.Background(),
		log: log,
	}
}

// Add registers run under spec. run receives the context given to Start.
func (s *Scheduler) Add(name, spec string, run func(ctx context.Context)) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		s.log.Debug("job fired", "job", name)
		run(s.ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.log.Info("job scheduled", "job", name, "spec", spec)
	return id, nil
}

func (s *Scheduler) Entries() []cron.Entry { return s.cron.Entries() }

// Start begins firing jobs in the background. Must be called once, before
// Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop prevents new runs and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

type cronLogger struct {
	log *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append(keysAndValues, "err", err)...)
}
