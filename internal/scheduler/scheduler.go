// Package scheduler runs named recurring jobs, each on its own cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/core-coin/rota/internal/metrics"
	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/pkg/logger"
)

var (
	ErrJobExists  = errors.New("job already registered")
	ErrUnknownJob = errors.New("unknown job")
	ErrStopped    = errors.New("job stopped")
)

// Task is the body of a job. Returning an error fails only this run.
type Task func(ctx context.Context) error

type job struct {
	name    string
	cadence Cadence
	task    Task

	running atomic.Bool
	stop    chan struct{}
	stopped bool // guarded by Scheduler.mu
	started bool // guarded by Scheduler.mu

	mu        sync.Mutex
	lastRunAt time.Time
	runs      int64
	lastErr   string
}

func (j *job) isStopped() bool {
	select {
	case <-j.stop:
		return true
	default:
		return false
	}
}

func (j *job) finish(at time.Time, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastRunAt = at
	j.runs++
	j.lastErr = ""
	if err != nil {
		j.lastErr = err.Error()
	}
}

func (j *job) status() models.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return models.JobStatus{
		Name:      j.name,
		Cadence:   j.cadence.String(),
		LastRunAt: j.lastRunAt,
		IsRunning: j.running.Load(),
		Runs:      j.runs,
		LastError: j.lastErr,
	}
}

// Scheduler owns the job registry for the lifetime of the process.
// Each job gets one goroutine that waits for its next fire time, runs the
// task to completion and only then re-arms, so a job never overlaps itself.
type Scheduler struct {
	logger *logger.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	started bool
	closed  bool

	runCtx     context.Context
	cancelRuns context.CancelFunc

	loops    sync.WaitGroup
	triggers sync.WaitGroup
}

// New creates an empty scheduler. Task contexts are detached from any caller
// and only cancelled when StopAll gives up waiting.
func New(logger *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:     logger.With("component", "scheduler"),
		jobs:       make(map[string]*job),
		runCtx:     ctx,
		cancelRuns: cancel,
	}
}

// Register adds a job. Jobs registered after Start begin immediately.
func (s *Scheduler) Register(name string, cadence Cadence, task Task) error {
	if name == "" {
		return errors.New("job name is required")
	}
	if cadence == nil {
		return fmt.Errorf("%w: job %q has no cadence", ErrInvalidCadence, name)
	}
	if err := cadence.validate(); err != nil {
		return fmt.Errorf("job %q: %w", name, err)
	}
	if task == nil {
		return fmt.Errorf("job %q has no task", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: scheduler is shut down", ErrStopped)
	}
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %q", ErrJobExists, name)
	}
	j := &job{name: name, cadence: cadence, task: task, stop: make(chan struct{})}
	s.jobs[name] = j
	s.order = append(s.order, name)
	s.logger.Infow("Job registered", "job", name, "cadence", cadence.String())

	if s.started {
		s.startLocked(j)
	}
	return nil
}

// Start arms every registered job. Calling it again is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	for _, name := range s.order {
		s.startLocked(s.jobs[name])
	}
}

func (s *Scheduler) startLocked(j *job) {
	if j.started || j.stopped {
		return
	}
	j.started = true
	s.loops.Add(1)
	go s.loop(j, time.Now())
}

func (s *Scheduler) loop(j *job, anchor time.Time) {
	defer s.loops.Done()
	log := s.logger.With("job", j.name)

	for {
		next := j.cadence.Next(anchor, time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-j.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
		// both may be ready at once; a stopped job must not start a new run
		if j.isStopped() {
			return
		}

		if !j.running.CompareAndSwap(false, true) {
			log.Debugw("Trigger dropped, previous run still in progress")
			metrics.DefaultMetrics.RecordJobSkipped(j.name)
			continue
		}
		s.execute(j)
	}
}

// execute runs the task once. The caller must have set j.running.
func (s *Scheduler) execute(j *job) {
	defer j.running.Store(false)

	started := time.Now()
	err := safeCall(s.runCtx, j.task)
	elapsed := time.Since(started)

	j.finish(started, err)
	metrics.DefaultMetrics.RecordJobRun(j.name, elapsed.Seconds(), err)
	if err != nil {
		s.logger.Errorw("Job run failed", "job", j.name, "duration", elapsed, "error", err)
		return
	}
	s.logger.Debugw("Job run finished", "job", j.name, "duration", elapsed)
}

// safeCall runs a task with panic recovery. A panic becomes the run's error.
func safeCall(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return task(ctx)
}

// Trigger runs a job now, outside its cadence. It returns false without
// running anything when the job is already in flight.
func (s *Scheduler) Trigger(name string) (bool, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if s.closed || j.stopped {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %q", ErrStopped, name)
	}
	if !j.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		metrics.DefaultMetrics.RecordJobSkipped(name)
		return false, nil
	}
	s.triggers.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.triggers.Done()
		s.execute(j)
	}()
	return true, nil
}

// Stop disarms one job. A run already in progress is left to finish.
func (s *Scheduler) Stop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	s.stopLocked(j)
	return nil
}

func (s *Scheduler) stopLocked(j *job) {
	if j.stopped {
		return
	}
	j.stopped = true
	close(j.stop)
	s.logger.Infow("Job stopped", "job", j.name)
}

// StopAll disarms every job and waits for in-flight runs to finish.
// If ctx expires first, running tasks see their context cancelled and
// StopAll returns ctx.Err().
func (s *Scheduler) StopAll(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, name := range s.order {
		s.stopLocked(s.jobs[name])
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.loops.Wait()
		s.triggers.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancelRuns()
		return nil
	case <-ctx.Done():
		s.cancelRuns()
		return ctx.Err()
	}
}

// Status returns a snapshot of every job in registration order.
func (s *Scheduler) Status() []models.JobStatus {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.order))
	for _, name := range s.order {
		jobs = append(jobs, s.jobs[name])
	}
	s.mu.Unlock()

	out := make([]models.JobStatus, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.status())
	}
	return out
}
