package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"checkline/internal/events"
)

// State is the scheduler lifecycle: Idle -> Running -> StopRequested -> Idle.
type State int32

const (
	Idle State = iota
	Running
	StopRequested
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case StopRequested:
		return "stop requested"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// StateError indicates a start/stop command invalid in the current state.
// It is logged as a warning, never fatal.
type StateError struct {
	Op    string
	State State
}

func (e StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// Scheduler repeats a pass on a fixed period. A single background worker
// runs the loop; the interactive surface talks to it only through the
// atomic state and observes completion through Done.
type Scheduler struct {
	Interval time.Duration
	Poll     time.Duration
	Sink     events.Sink
	Log      *zap.Logger

	state atomic.Int32

	mu   sync.Mutex
	done chan struct{}
}

// New creates a scheduler with the given period between passes.
func New(interval time.Duration, sink events.Sink, log *zap.Logger) *Scheduler {
	if sink == nil {
		sink = events.Discard()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Interval: interval,
		Poll:     250 * time.Millisecond,
		Sink:     sink,
		Log:      log,
	}
}

// Status returns the current state without blocking.
func (s *Scheduler) Status() State {
	return State(s.state.Load())
}

// Done reports when the loop started by the most recent Start has exited.
// It returns a closed channel if no loop ever ran.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Start launches the repeating loop on a background goroutine and returns
// immediately. Starting while already running is a warned no-op.
func (s *Scheduler) Start(ctx context.Context, pass func(context.Context)) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		err := StateError{Op: "start", State: s.Status()}
		s.Sink.Warn(err.Error())
		return err
	}
	s.mu.Lock()
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.Log.Info("scheduler started", zap.Duration("interval", s.Interval))
	go s.loop(ctx, pass, done)
	return nil
}

// Stop raises the stop signal. It never aborts an in-flight pass; the loop
// observes the signal at its next checkpoint and winds down to Idle.
// Stopping while idle is a warned no-op.
func (s *Scheduler) Stop() error {
	if !s.state.CompareAndSwap(int32(Running), int32(StopRequested)) {
		err := StateError{Op: "stop", State: s.Status()}
		s.Sink.Warn(err.Error())
		return err
	}
	s.Sink.Info("stop requested; finishing current work")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, pass func(context.Context), done chan struct{}) {
	defer func() {
		s.state.Store(int32(Idle))
		s.Log.Info("scheduler stopped")
		close(done)
	}()
	for {
		if s.stopped(ctx) {
			return
		}
		pass(ctx)
		if !s.wait(ctx) {
			return
		}
	}
}

// wait pauses for the full interval, polling the stop signal at fine
// granularity. Remaining time is recomputed from the captured start
// timestamp on every poll so drift does not accumulate. It returns false
// when the wait was interrupted.
func (s *Scheduler) wait(ctx context.Context) bool {
	start := time.Now()
	for {
		if s.stopped(ctx) {
			return false
		}
		remaining := s.Interval - time.Since(start)
		if remaining <= 0 {
			return true
		}
		s.Sink.Countdown(remaining)
		pause := s.Poll
		if remaining < pause {
			pause = remaining
		}
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return false
		}
	}
}

func (s *Scheduler) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return s.Status() == StopRequested
}
