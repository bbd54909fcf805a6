// Package scheduler runs the billing maintenance jobs on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"msgdeck/internal/shared/biztime"
	"msgdeck/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

type registeredJob struct {
	name    string
	spec    string
	timeout time.Duration
	job     BatchJob
	entry   cron.EntryID
}

// SchedulerManager owns one cron instance in the business timezone. Overlapping runs
// of the same job are skipped and panics are recovered.
type SchedulerManager struct {
	cron   *cron.Cron
	logger logger.Interface

	mu      sync.Mutex
	jobs    map[string]*registeredJob
	started bool
}

func NewSchedulerManager(log logger.Interface) *SchedulerManager {
	cl := cronLogger{log}
	return &SchedulerManager{
		cron: cron.New(
			cron.WithLocation(biztime.Location()),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: log,
		jobs:   make(map[string]*registeredJob),
	}
}

// Register schedules job under name. An empty spec leaves the job disabled.
func (m *SchedulerManager) Register(name, spec string, timeout time.Duration, job BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	rj := &registeredJob{name: name, spec: spec, timeout: timeout, job: job}
	m.jobs[name] = rj

	if spec == "" {
		m.logger.Infow("job disabled", "job", name)
		return nil
	}

	id, err := m.cron.AddFunc(spec, func() { m.run(context.Background(), rj) })
	if err != nil {
		delete(m.jobs, name)
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	rj.entry = id

	m.logger.Infow("registered job", "job", name, "spec", spec, "timeout", timeout)
	return nil
}

// RunNow executes a registered job synchronously, regardless of its schedule.
func (m *SchedulerManager) RunNow(ctx context.Context, name string) (int, error) {
	m.mu.Lock()
	rj, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown job %q", name)
	}
	return m.run(ctx, rj)
}

func (m *SchedulerManager) run(ctx context.Context, rj *registeredJob) (int, error) {
	if rj.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rj.timeout)
		defer cancel()
	}

	start := time.Now()
	n, err := rj.job.Execute(ctx)
	if err != nil {
		m.logger.Errorw("job failed", "job", rj.name, "error", err, "duration", time.Since(start))
		return n, err
	}
	if n > 0 {
		m.logger.Infow("job completed", "job", rj.name, "count", n, "duration", time.Since(start))
	} else {
		m.logger.Debugw("job completed, nothing to do", "job", rj.name, "duration", time.Since(start))
	}
	return n, nil
}

// Jobs lists the registered job names.
func (m *SchedulerManager) Jobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	return names
}

func (m *SchedulerManager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.cron.Start()
	m.logger.Infow("scheduler started", "jobs", len(m.jobs))
}

// Stop waits for running jobs to finish or ctx to end.
func (m *SchedulerManager) Stop(ctx context.Context) {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	done := m.cron.Stop()
	select {
	case <-done.Done():
		m.logger.Infow("scheduler stopped")
	case <-ctx.Done():
		m.logger.Warnw("scheduler stop timed out, jobs still running")
	}
}

// cronLogger adapts logger.Interface to cron.Logger.
type cronLogger struct{ log logger.Interface }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
