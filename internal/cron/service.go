package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/logger"
	"github.com/angelmondragon/storedesk-backend/pkg/metrics"
	robfig "github.com/robfig/cron/v3"
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Location evaluates schedules; defaults to UTC.
	Location *time.Location
}

// Service fires registered jobs on their cron schedules.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	loc      *time.Location
}

// NewService builds a cron service. Every job schedule is parsed up front.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	for _, job := range registry.Jobs() {
		if _, err := robfig.ParseStandard(job.Schedule()); err != nil {
			return nil, fmt.Errorf("job %s: invalid schedule %q: %w", job.Name(), job.Schedule(), err)
		}
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		loc:      loc,
	}, nil
}

// Run schedules every job and blocks until the context is canceled. Running
// jobs finish before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scheduler := robfig.New(
		robfig.WithLocation(s.loc),
		robfig.WithChain(robfig.SkipIfStillRunning(cronLogger{ctx: ctx, logg: s.logg})),
	)
	for _, job := range s.registry.Jobs() {
		job := job
		if _, err := scheduler.AddFunc(job.Schedule(), func() { s.runJob(ctx, job) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"job":      job.Name(),
			"schedule": job.Schedule(),
		}), "job scheduled")
	}

	scheduler.Start()
	<-ctx.Done()
	s.logg.Info(ctx, "cron service context canceled")
	<-scheduler.Stop().Done()
	return ctx.Err()
}

// RunOnce runs every registered job immediately, in registration order.
func (s *Service) RunOnce(ctx context.Context) {
	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithJob(ctx, job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	token, locked, err := s.lock.Acquire(jobCtx, job.Name())
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		s.recordFailure(job.Name())
		return
	}
	if !locked {
		s.logg.Info(jobCtx, "another cron instance is running this job; skipping")
		return
	}
	defer func() {
		if relErr := s.lock.Release(jobCtx, job.Name(), token); relErr != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(job.Name())
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}

// cronLogger routes scheduler diagnostics into the structured logger.
type cronLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logg.Debug(l.withPairs(keysAndValues), msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logg.Error(l.withPairs(keysAndValues), msg, err)
}

func (l cronLogger) withPairs(keysAndValues []any) context.Context {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return l.logg.WithFields(l.ctx, fields)
}
