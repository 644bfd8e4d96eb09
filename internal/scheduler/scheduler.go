package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job is run on every tick. An error is logged and counted; the scheduler
// keeps going.
type Job func(ctx context.Context) error

type Status struct {
	Name      string     `json:"name"`
	Running   bool       `json:"running"`
	Interval  string     `json:"interval"`
	Runs      int64      `json:"runs"`
	Failures  int64      `json:"failures"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
	logger   *slog.Logger

	running  atomic.Bool
	runs     atomic.Int64
	failures atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastRun time.Time
	lastErr string
}

func New(name string, interval time.Duration, job Job, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
		logger:   logger.With("scheduler", name),
		done:     make(chan struct{}),
	}, nil
}

// Start runs the job once immediately and then on every interval. It
// returns false when already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go s.loop(ctx, s.done)

	return true
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval.String())

	s.safeRun(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.safeRun(ctx)
		}
	}
}

// Stop cancels the running job and waits for the loop to exit. It returns
// false when not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return false
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	s.running.Store(false)
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Name:      s.name,
		Running:   s.running.Load(),
		Interval:  s.interval.String(),
		Runs:      s.runs.Load(),
		Failures:  s.failures.Load(),
		LastError: s.lastErr,
	}
	if !s.lastRun.IsZero() {
		t := s.lastRun
		st.LastRunAt = &t
	}
	return st
}

func (s *Scheduler) safeRun(ctx context.Context) {
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduler job panic recovered", "panic", r)
				err = errors.New("job panicked")
			}
		}()
		return s.job(ctx)
	}()

	s.runs.Add(1)

	s.mu.Lock()
	s.lastRun = start
	if err != nil {
		s.failures.Add(1)
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("scheduler job failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	s.logger.Debug("scheduler job completed", "duration_ms", time.Since(start).Milliseconds())
}
