package sim

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/ridepool/core/logger"
	"github.com/kilianp07/ridepool/core/simclock"
)

// ErrNilAction is returned when scheduling an event without an action.
var ErrNilAction = errors.New("sim: event without action")

// SkipFunc observes events dropped because they fall outside the window.
type SkipFunc func(ctx context.Context, e *Event)

// Kernel orders and executes events. Schedule and Cancel are safe to call
// from any goroutine; Run executes one event at a time.
type Kernel struct {
	clock *simclock.Clock
	log   logger.Logger

	mu       sync.Mutex
	queue    eventHeap
	nextSeq  uint64
	pending  [numKinds]int
	start    simclock.Time
	end      simclock.Time
	onSkip   SkipFunc
	ready    bool
	executed int64
	skipped  int64
}

// NewKernel returns a kernel driving clock. A zero end leaves the window open.
func NewKernel(clock *simclock.Clock, start, end simclock.Time, log logger.Logger) *Kernel {
	return &Kernel{clock: clock, start: start, end: end, log: log}
}

// OnSkip installs the hook called for every skipped event.
func (k *Kernel) OnSkip(fn SkipFunc) {
	k.mu.Lock()
	k.onSkip = fn
	k.mu.Unlock()
}

func (k *Kernel) Clock() *simclock.Clock { return k.clock }
func (k *Kernel) Now() simclock.Time     { return k.clock.Now() }

// Window returns the configured execution window.
func (k *Kernel) Window() (start, end simclock.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.start, k.end
}

// Schedule queues e. Scheduling a queued event moves it to its current At.
func (k *Kernel) Schedule(e *Event) error {
	if e == nil || e.Action == nil {
		return ErrNilAction
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.nextSeq++
	e.seq = k.nextSeq
	if e.index >= 0 && e.index < len(k.queue) && k.queue[e.index] == e {
		heap.Fix(&k.queue, e.index)
		return nil
	}
	heap.Push(&k.queue, e)
	k.count(e.Kind, 1)
	return nil
}

// At schedules a new event and returns it.
func (k *Kernel) At(at simclock.Time, kind Kind, name string, action Action) (*Event, error) {
	e := NewEvent(at, kind, name, action)
	if err := k.Schedule(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Cancel removes e from the queue and reports whether it was queued.
func (k *Kernel) Cancel(e *Event) bool {
	if e == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if e.index < 0 || e.index >= len(k.queue) || k.queue[e.index] != e {
		return false
	}
	heap.Remove(&k.queue, e.index)
	k.count(e.Kind, -1)
	return true
}

// Scheduled reports whether e is still waiting in the queue.
func (k *Kernel) Scheduled(e *Event) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return e != nil && e.index >= 0 && e.index < len(k.queue) && k.queue[e.index] == e
}

func (k *Kernel) count(kind Kind, d int) {
	if kind >= 0 && kind < numKinds {
		k.pending[kind] += d
	}
}

// Pending counts queued events of the given kinds, or of all kinds.
func (k *Kernel) Pending(kinds ...Kind) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(kinds) == 0 {
		return len(k.queue)
	}
	n := 0
	for _, kind := range kinds {
		if kind >= 0 && kind < numKinds {
			n += k.pending[kind]
		}
	}
	return n
}

// Stats returns the number of executed and skipped events.
func (k *Kernel) Stats() (executed, skipped int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.executed, k.skipped
}

// Init sets the clock to the later of the first queued event and the window
// start. Run calls it when it has not been called.
func (k *Kernel) Init() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.initLocked()
}

func (k *Kernel) initLocked() {
	t := k.start
	if len(k.queue) > 0 {
		t = simclock.Max(t, k.queue[0].At)
	}
	k.clock.Reset(t)
	k.ready = true
}

func (k *Kernel) pop() (*Event, SkipFunc, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.ready {
		k.initLocked()
	}
	if len(k.queue) == 0 {
		return nil, nil, false
	}
	e := heap.Pop(&k.queue).(*Event)
	k.count(e.Kind, -1)
	if e.At < k.start || (!k.end.IsZero() && e.At >= k.end) {
		k.skipped++
		return e, k.onSkip, true
	}
	k.executed++
	return e, nil, false
}

// Run executes events until the queue is empty or ctx is done. An action
// error or panic stops the run and is returned.
func (k *Kernel) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, onSkip, skipped := k.pop()
		if e == nil {
			return nil
		}
		if skipped {
			if onSkip != nil {
				onSkip(ctx, e)
			}
			continue
		}
		if err := k.clock.Advance(e.At); err != nil {
			// executed at the current instant, the clock never moves back
			k.log.Errorf("event %s: %v", e, err)
		}
		if err := k.execute(ctx, e); err != nil {
			return err
		}
	}
}

func (k *Kernel) execute(ctx context.Context, e *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sim: event %s panicked: %v", e, r)
		}
	}()
	if err := e.Action(ctx); err != nil {
		return fmt.Errorf("sim: event %s: %w", e, err)
	}
	return nil
}

// Every schedules a recurring event first at first and then every interval
// after each execution, for as long as more reports true.
func (k *Kernel) Every(kind Kind, name string, first simclock.Time, interval time.Duration, more func() bool, fn Action) (*Event, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sim: %s interval must be positive", name)
	}
	e := NewEvent(first, kind, name, nil)
	e.Action = func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		if more() {
			e.At = k.Now().Add(interval)
			return k.Schedule(e)
		}
		return nil
	}
	if err := k.Schedule(e); err != nil {
		return nil, err
	}
	return e, nil
}
