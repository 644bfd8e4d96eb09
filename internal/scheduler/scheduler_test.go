package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func countingJob(calls *atomic.Int64) Job {
	return func(context.Context) error {
		calls.Add(1)
		return nil
	}
}

func TestNew_InvalidArgs(t *testing.T) {
	t.Parallel()

	t.Run("interval must be > 0", func(t *testing.T) {
		t.Parallel()

		s, err := New("sync", 0, func(context.Context) error { return nil }, nil)
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if s != nil {
			t.Fatalf("expected nil scheduler, got %#v", s)
		}
	})

	t.Run("job must not be nil", func(t *testing.T) {
		t.Parallel()

		s, err := New("sync", 100*time.Millisecond, nil, nil)
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if s != nil {
			t.Fatalf("expected nil scheduler, got %#v", s)
		}
	})
}

func TestScheduler_StartStop_Basics(t *testing.T) {
	var calls atomic.Int64

	s, err := New("sync", 10*time.Millisecond, countingJob(&calls), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if s.IsRunning() {
		t.Fatalf("expected scheduler not running initially")
	}
	if ok := s.Start(); !ok {
		t.Fatalf("expected Start() true on first call")
	}
	if !s.IsRunning() {
		t.Fatalf("expected scheduler running after Start()")
	}
	if ok := s.Start(); ok {
		t.Fatalf("expected Start() false when already running")
	}

	waitForAtLeast(t, &calls, 1, 500*time.Millisecond)

	if ok := s.Stop(); !ok {
		t.Fatalf("expected Stop() true on first call")
	}
	if s.IsRunning() {
		t.Fatalf("expected scheduler not running after Stop()")
	}
	if ok := s.Stop(); ok {
		t.Fatalf("expected Stop() false when already stopped")
	}
}

func TestScheduler_DoesNotRunAfterStop(t *testing.T) {
	var calls atomic.Int64

	s, err := New("sync", 10*time.Millisecond, countingJob(&calls), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	s.Start()
	waitForAtLeast(t, &calls, 2, 750*time.Millisecond)
	s.Stop()
	beforeSleep := calls.Load()

	time.Sleep(100 * time.Millisecond)

	if after := calls.Load(); after != beforeSleep {
		t.Fatalf("expected no runs after Stop; before=%d after=%d", beforeSleep, after)
	}
}

func TestScheduler_ImmediateRunOnStart(t *testing.T) {
	var calls atomic.Int64

	s, err := New("sync", 10*time.Second, countingJob(&calls), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	s.Start()
	defer s.Stop()

	waitForAtLeast(t, &calls, 1, 500*time.Millisecond)
}

func TestScheduler_PanicIsRecoveredAndCounted(t *testing.T) {
	var calls atomic.Int64
	var panicked atomic.Bool

	s, err := New("sync", 10*time.Millisecond, func(context.Context) error {
		if panicked.CompareAndSwap(false, true) {
			panic("boom")
		}
		calls.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	s.Start()
	waitForAtLeast(t, &calls, 1, 750*time.Millisecond)
	s.Stop()

	if st := s.Status(); st.Failures < 1 {
		t.Fatalf("expected the panic counted as a failure, got %+v", st)
	}
}

func TestScheduler_StatusTracksErrors(t *testing.T) {
	var calls atomic.Int64

	s, err := New("sync", 10*time.Second, func(context.Context) error {
		calls.Add(1)
		return errors.New("redis down")
	}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if st := s.Status(); st.Running || st.Runs != 0 || st.LastRunAt != nil {
		t.Fatalf("unexpected initial status %+v", st)
	}

	s.Start()
	waitForAtLeast(t, &calls, 1, 500*time.Millisecond)
	s.Stop()

	st := s.Status()
	if st.Name != "sync" || st.Interval != "10s" {
		t.Fatalf("unexpected identity %+v", st)
	}
	if st.Runs != 1 || st.Failures != 1 {
		t.Fatalf("expected runs=1 failures=1, got %+v", st)
	}
	if st.LastError != "redis down" || st.LastRunAt == nil {
		t.Fatalf("expected last error and run time, got %+v", st)
	}
}

func TestScheduler_StartStopMultipleTimes(t *testing.T) {
	var calls atomic.Int64

	s, err := New("sync", 10*time.Millisecond, countingJob(&calls), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if ok := s.Start(); !ok {
			t.Fatalf("iteration %d: expected Start() true", i)
		}
		waitForAtLeast(t, &calls, 1, 750*time.Millisecond)
		if ok := s.Stop(); !ok {
			t.Fatalf("iteration %d: expected Stop() true", i)
		}
		calls.Store(0)
	}
}

func TestScheduler_JobContextCanceledOnStop(t *testing.T) {
	var mu sync.Mutex
	var captured context.Context

	s, err := New("sync", 10*time.Millisecond, func(ctx context.Context) error {
		mu.Lock()
		if captured == nil {
			captured = ctx
		}
		mu.Unlock()
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	s.Start()

	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		mu.Lock()
		got := captured
		mu.Unlock()
		if got != nil {
			break
		}
		if time.Now().After(deadline) {
			_ = s.Stop()
			t.Fatalf("did not capture job context in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Stop()

	mu.Lock()
	ctx := captured
	mu.Unlock()

	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected job context to be canceled after Stop()")
	}
}

// waitForAtLeast polls until calls >= n or fails the test after timeout.
func waitForAtLeast(t *testing.T, calls *atomic.Int64, n int64, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if calls.Load() >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for calls >= %d (got %d)", n, calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
