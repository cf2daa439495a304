package conversation

import (
	"sync"
	"time"
)

// DefaultIdleWindow is how long a conversation may sit without input.
const DefaultIdleWindow = 5 * time.Minute

// IdleTimer fires onExpire for users whose conversation saw no input for the
// configured window. One timer per user; re-arming replaces the old deadline.
type IdleTimer struct {
	window   time.Duration
	onExpire func(userID int64)

	mu     sync.Mutex
	timers map[int64]*idleEntry
	seq    uint64
	closed bool
}

type idleEntry struct {
	timer *time.Timer
	gen   uint64
}

// NewIdleTimer builds an IdleTimer. onExpire runs on its own goroutine.
func NewIdleTimer(window time.Duration, onExpire func(userID int64)) *IdleTimer {
	if window <= 0 {
		window = DefaultIdleWindow
	}
	return &IdleTimer{
		window:   window,
		onExpire: onExpire,
		timers:   make(map[int64]*idleEntry),
	}
}

// Touch arms or re-arms the user's deadline.
func (t *IdleTimer) Touch(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if e, ok := t.timers[userID]; ok {
		e.timer.Stop()
	}
	t.seq++
	gen := t.seq
	t.timers[userID] = &idleEntry{
		gen:   gen,
		timer: time.AfterFunc(t.window, func() { t.fire(userID, gen) }),
	}
}

// Stop disarms the user's deadline.
func (t *IdleTimer) Stop(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.timers[userID]; ok {
		e.timer.Stop()
		delete(t.timers, userID)
	}
}

// Track arms the deadline while phase is active and disarms it otherwise.
func (t *IdleTimer) Track(userID int64, phase Phase) {
	if phase.Active() {
		t.Touch(userID)
		return
	}
	t.Stop(userID)
}

// Armed reports whether the user has a pending deadline.
func (t *IdleTimer) Armed(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[userID]
	return ok
}

// Pending returns the number of armed deadlines.
func (t *IdleTimer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// Close disarms every deadline; later Touch calls are ignored.
func (t *IdleTimer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, e := range t.timers {
		e.timer.Stop()
		delete(t.timers, id)
	}
}

func (t *IdleTimer) fire(userID int64, gen uint64) {
	t.mu.Lock()
	e, ok := t.timers[userID]
	if !ok || e.gen != gen || t.closed {
		t.mu.Unlock()
		return
	}
	delete(t.timers, userID)
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire(userID)
	}
}
