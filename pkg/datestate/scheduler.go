package datestate

import (
	"sync"
	"time"
)

// FrameInterval approximates one display frame at 60Hz.
const FrameInterval = 16 * time.Millisecond

// CancelFunc cancels a scheduled callback. Calling it more than once, or
// after the callback ran, is a no-op.
type CancelFunc func()

// Scheduler runs a callback once on the next frame.
type Scheduler interface {
	Schedule(fn func(now time.Time)) CancelFunc
}

// FrameScheduler schedules callbacks on a wall-clock timer.
type FrameScheduler struct {
	Interval time.Duration
}

// NewFrameScheduler returns a scheduler firing every FrameInterval.
func NewFrameScheduler() *FrameScheduler {
	return &FrameScheduler{Interval: FrameInterval}
}

// Schedule implements Scheduler.
func (s *FrameScheduler) Schedule(fn func(now time.Time)) CancelFunc {
	interval := s.Interval
	if interval <= 0 {
		interval = FrameInterval
	}
	t := time.AfterFunc(interval, func() { fn(time.Now()) })
	return func() { t.Stop() }
}

// ManualScheduler holds callbacks until Fire is called. It drives the
// machine deterministically in tests and in headless exports.
type ManualScheduler struct {
	mu      sync.Mutex
	nextID  int
	pending map[int]func(time.Time)
	order   []int
}

// NewManualScheduler returns an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[int]func(time.Time))}
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(fn func(now time.Time)) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.pending[id] = fn
	s.order = append(s.order, id)
	return func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
}

// Fire runs every callback pending at the time of the call with the given
// frame time. Callbacks scheduled while firing wait for the next Fire. It
// returns the number of callbacks run.
func (s *ManualScheduler) Fire(now time.Time) int {
	s.mu.Lock()
	order := s.order
	s.order = nil
	var due []func(time.Time)
	for _, id := range order {
		if fn, ok := s.pending[id]; ok {
			due = append(due, fn)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	for _, fn := range due {
		fn(now)
	}
	return len(due)
}

// Pending returns the number of callbacks waiting to fire.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
