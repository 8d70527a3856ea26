// Package loop provides the single logical thread that owns all viewer state.
// UI commands, timer callbacks, and stream deliveries are posted as tasks and
// run one at a time in arrival order, so state needs no locking.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrStopped is returned when posting to a loop that is no longer running.
var ErrStopped = errors.New("loop stopped")

const queueSize = 256

// Loop runs posted tasks sequentially on the goroutine that calls Run.
type Loop struct {
	clock clockwork.Clock
	tasks chan func()
	done  chan struct{}
	stop  sync.Once
}

// New creates a loop whose timers use clock.
func New(clock clockwork.Clock) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loop{
		clock: clock,
		tasks: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
}

// Clock returns the loop's time source.
func (l *Loop) Clock() clockwork.Clock {
	return l.clock
}

// Run executes tasks until ctx is cancelled. Tasks still queued are dropped.
func (l *Loop) Run(ctx context.Context) {
	defer l.stop.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn. It must not be called from a task running on the loop.
// Returns false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if !l.Post(func() {
		defer close(ran)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Timer is a delayed task scheduled with After. Stop and the task itself both
// run on the loop, so a stopped timer never fires even if its clock callback
// already queued it.
type Timer struct {
	inner   clockwork.Timer
	stopped bool
}

// After schedules fn on the loop after d. Must be called from the loop.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.inner = l.clock.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped {
				return
			}
			t.stopped = true
			fn()
		})
	})
	return t
}

// Stop cancels the timer. Safe on a nil or already fired timer. Must be called from the loop.
func (t *Timer) Stop() {
	if t == nil || t.stopped {
		return
	}
	t.stopped = true
	t.inner.Stop()
}

// Pending reports whether the timer has neither fired nor been stopped.
func (t *Timer) Pending() bool {
	return t != nil && !t.stopped
}
