package lifecycle

import (
	"sync"
	"time"
)

// Timer purposes used by the ticket state machine.
const (
	timerGCRecheck = "gc-recheck"
)

// TimerRegistry tracks cancellable delayed callbacks keyed by purpose.
// Scheduling a purpose that already has a live timer cancels the old one
// first, so at most one timer per purpose is ever pending.
type TimerRegistry struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewTimerRegistry creates an empty registry.
func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{timers: make(map[string]*time.Timer)}
}

// Schedule arms fn to run after d, replacing any pending timer with the same
// purpose. Scheduling on a stopped registry is a no-op.
func (r *TimerRegistry) Schedule(purpose string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if old, ok := r.timers[purpose]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		r.mu.Lock()
		if r.timers[purpose] == timer {
			delete(r.timers, purpose)
		}
		fired := !r.stopped
		r.mu.Unlock()
		if fired {
			fn()
		}
	})
	r.timers[purpose] = timer
}

// Cancel stops a pending timer. It reports whether one was pending.
func (r *TimerRegistry) Cancel(purpose string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	timer, ok := r.timers[purpose]
	if !ok {
		return false
	}
	timer.Stop()
	delete(r.timers, purpose)
	return true
}

// CancelAll stops every pending timer and marks the registry stopped so no
// further timers can be armed. Used when a ticket reaches its terminal state.
func (r *TimerRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for purpose, timer := range r.timers {
		timer.Stop()
		delete(r.timers, purpose)
	}
}

// Active reports whether a timer with the given purpose is pending.
func (r *TimerRegistry) Active(purpose string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[purpose]
	return ok
}

// Len returns the number of pending timers.
func (r *TimerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}
