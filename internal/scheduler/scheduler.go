// Package scheduler runs named maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrJobNotFound = errors.New("job not found")

// Task is the work a job performs. The returned string summarizes the run.
type Task func(ctx context.Context) (string, error)

// Job is the observable state of a scheduled job.
type Job struct {
	Name       string    `yaml:"name" json:"name"`
	Schedule   string    `yaml:"schedule" json:"schedule"`
	Paused     bool      `yaml:"paused,omitempty" json:"paused,omitempty"`
	LastRun    time.Time `yaml:"last_run,omitempty" json:"lastRun,omitempty"`
	LastResult string    `yaml:"last_result,omitempty" json:"lastResult,omitempty"`
	LastError  string    `yaml:"last_error,omitempty" json:"lastError,omitempty"`
	Runs       int       `yaml:"runs" json:"runs"`
}

type runningJob struct {
	job     Job
	task    Task
	entryID cron.EntryID
}

// Scheduler wraps a cron runner with named, pausable jobs.
type Scheduler struct {
	mu     sync.RWMutex
	cron   *cron.Cron
	jobs   map[string]*runningJob
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		jobs:   make(map[string]*runningJob),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// AddJob registers task under name. schedule is a standard five-field cron
// expression or a descriptor such as "@daily" or "@every 1h".
func (s *Scheduler) AddJob(name, schedule string, task Task) error {
	if name == "" {
		return fmt.Errorf("job name is required")
	}
	if task == nil {
		return fmt.Errorf("job %q: task is required", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already exists", name)
	}
	rj := &runningJob{job: Job{Name: name, Schedule: schedule}, task: task}
	id, err := s.cron.AddFunc(schedule, func() { s.execute(s.ctx, rj) })
	if err != nil {
		return fmt.Errorf("invalid schedule for job %q: %w", name, err)
	}
	rj.entryID = id
	s.jobs[name] = rj
	return nil
}

// RemoveJob unschedules and forgets a job.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rj, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrJobNotFound, name)
	}
	s.cron.Remove(rj.entryID)
	delete(s.jobs, name)
	return nil
}

// PauseJob keeps the job registered but skips its scheduled runs.
func (s *Scheduler) PauseJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rj, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrJobNotFound, name)
	}
	rj.job.Paused = true
	return nil
}

func (s *Scheduler) ResumeJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rj, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrJobNotFound, name)
	}
	if !rj.job.Paused {
		return fmt.Errorf("job %q is not paused", name)
	}
	rj.job.Paused = false
	return nil
}

// RunNow executes a job immediately, paused or not, and returns its result.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Job, error) {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("%w: %q", ErrJobNotFound, name)
	}
	s.run(ctx, rj)
	return s.snapshotJob(rj), nil
}

// ListJobs returns all jobs sorted by name.
func (s *Scheduler) ListJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, rj := range s.jobs {
		out = append(out, rj.job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) GetJob(name string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rj, ok := s.jobs[name]
	if !ok {
		return Job{}, false
	}
	return rj.job, true
}

// NextRun reports when the job fires next. Zero when the scheduler is not
// started.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(rj.entryID).Next, true
}

func (s *Scheduler) snapshotJob(rj *runningJob) Job {
	s.mu.RLock()
	j := rj.job
	s.mu.RUnlock()
	return j
}

func (s *Scheduler) execute(ctx context.Context, rj *runningJob) {
	if s.snapshotJob(rj).Paused {
		return
	}
	s.run(ctx, rj)
}

func (s *Scheduler) run(ctx context.Context, rj *runningJob) {
	start := time.Now()
	result, err := rj.task(ctx)

	s.mu.Lock()
	rj.job.LastRun = start.UTC()
	rj.job.Runs++
	rj.job.LastResult = result
	rj.job.LastError = ""
	if err != nil {
		rj.job.LastError = err.Error()
	}
	name := rj.job.Name
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Info("scheduled job finished", zap.String("job", name),
		zap.String("result", result), zap.Duration("elapsed", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
