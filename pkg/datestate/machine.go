// Package datestate holds the simulated calendar date and the play/pause
// loop that advances it one day per (scaled) second.
package datestate

import (
	"sync"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/metrics"
)

// BaseDayDuration is the wall-clock time one simulated day takes at 1x.
const BaseDayDuration = time.Second

// State is the snapshot handed to the subscriber.
type State struct {
	Date            time.Time
	IsPlaying       bool
	SpeedMultiplier int
}

// FormattedDate returns the date as shown in the UI.
func (s State) FormattedDate() string { return FormatDate(s.Date) }

// PlayGlyph returns the play/pause indicator for the status line.
func (s State) PlayGlyph() string {
	if s.IsPlaying {
		return "⏸"
	}
	return "▶"
}

// SpeedLabel returns "1x" or "2x".
func (s State) SpeedLabel() string {
	if s.SpeedMultiplier == 2 {
		return "2x"
	}
	return "1x"
}

// Subscriber receives the state after every state-changing operation.
type Subscriber func(State)

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the wall clock used by Reset and the default start date.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithScheduler sets the frame scheduler. Defaults to a FrameScheduler.
func WithScheduler(s Scheduler) Option {
	return func(m *Machine) {
		if s != nil {
			m.sched = s
		}
	}
}

// WithStartDate sets the initial date instead of today.
func WithStartDate(d time.Time) Option {
	return func(m *Machine) {
		m.start = Midnight(d)
		m.hasStart = true
	}
}

// WithDayDuration sets the wall-clock duration of one day at 1x.
func WithDayDuration(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.dayDuration = d
		}
	}
}

// Machine is the date state machine. Each instance is independent.
//
// The frame callback may run on a timer goroutine, so all fields are guarded
// by mu. The subscriber is always invoked without mu held.
type Machine struct {
	mu          sync.Mutex
	clock       func() time.Time
	sched       Scheduler
	dayDuration time.Duration
	start       time.Time
	hasStart    bool

	current    time.Time
	playing    bool
	speed      int
	lastUpdate time.Time
	haveLast   bool
	cancel     CancelFunc
	gen        uint64
	sub        Subscriber
	disposed   bool
}

// NewMachine creates a paused machine at 1x, dated today unless WithStartDate is
// given.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		clock:       time.Now,
		dayDuration: BaseDayDuration,
		speed:       1,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sched == nil {
		m.sched = NewFrameScheduler()
	}
	if m.hasStart {
		m.current = m.start
	} else {
		m.current = Today(m.clock)
	}
	return m
}

// OnUpdate registers the single subscriber, replacing any previous one.
// Passing nil unsubscribes.
func (m *Machine) OnUpdate(fn Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.sub = fn
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Machine) stateLocked() State {
	return State{Date: m.current, IsPlaying: m.playing, SpeedMultiplier: m.speed}
}

// Date returns the current simulated date.
func (m *Machine) Date() time.Time { return m.State().Date }

// IsPlaying reports whether the advancement loop is running.
func (m *Machine) IsPlaying() bool { return m.State().IsPlaying }

// SpeedMultiplier returns 1 or 2.
func (m *Machine) SpeedMultiplier() int { return m.State().SpeedMultiplier }

// Play starts the advancement loop. It does nothing if already playing.
func (m *Machine) Play() {
	m.mu.Lock()
	if m.playing || m.disposed {
		m.mu.Unlock()
		return
	}
	m.playing = true
	m.haveLast = false
	m.gen++
	m.scheduleLocked()
	m.mu.Unlock()
	debug.Log("datestate: play")
	m.notify()
}

// Pause stops the loop and cancels the pending frame. Safe to call in any
// state; notifies only on an actual transition.
func (m *Machine) Pause() {
	m.mu.Lock()
	if !m.playing {
		m.mu.Unlock()
		return
	}
	m.playing = false
	m.cancelLocked()
	m.mu.Unlock()
	debug.Log("datestate: pause")
	m.notify()
}

// TogglePlayPause flips between playing and paused.
func (m *Machine) TogglePlayPause() {
	if m.IsPlaying() {
		m.Pause()
	} else {
		m.Play()
	}
}

// NextDay moves one day forward regardless of play state.
func (m *Machine) NextDay() { m.shift(1) }

// PreviousDay moves one day back regardless of play state.
func (m *Machine) PreviousDay() { m.shift(-1) }

func (m *Machine) shift(days int) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.current = AddDays(m.current, days)
	m.mu.Unlock()
	m.notify()
}

// SetDate jumps to d, normalised to midnight.
func (m *Machine) SetDate(d time.Time) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.current = Midnight(d)
	m.mu.Unlock()
	m.notify()
}

// Reset jumps to today.
func (m *Machine) Reset() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.current = Today(m.clock)
	m.mu.Unlock()
	m.notify()
}

// SetSpeedMultiplier sets the speed. Values of 2 or more select 2x,
// anything else 1x. Play state is unchanged.
func (m *Machine) SetSpeedMultiplier(mult int) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	if mult >= 2 {
		m.speed = 2
	} else {
		m.speed = 1
	}
	m.mu.Unlock()
	m.notify()
}

// ToggleSpeed switches between 1x and 2x.
func (m *Machine) ToggleSpeed() {
	if m.SpeedMultiplier() == 2 {
		m.SetSpeedMultiplier(1)
	} else {
		m.SetSpeedMultiplier(2)
	}
}

// Dispose cancels any pending frame and drops the subscriber. Further
// operations are ignored. Safe to call repeatedly.
func (m *Machine) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.cancelLocked()
	m.sub = nil
	m.disposed = true
}

func (m *Machine) scheduleLocked() {
	gen := m.gen
	m.cancel = m.sched.Schedule(func(now time.Time) { m.tick(gen, now) })
}

func (m *Machine) cancelLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// tick is one frame of the advancement loop. The first frame after Play only
// records the reference time.
func (m *Machine) tick(gen uint64, now time.Time) {
	m.mu.Lock()
	if !m.playing || gen != m.gen {
		m.mu.Unlock()
		return
	}
	metrics.Frames.Inc()

	advanced := false
	if !m.haveLast {
		m.lastUpdate = now
		m.haveLast = true
	} else if now.Sub(m.lastUpdate) >= m.dayDuration/time.Duration(m.speed) {
		m.current = AddDays(m.current, 1)
		m.lastUpdate = now
		advanced = true
		metrics.DayAdvances.Inc()
	}
	m.scheduleLocked()
	m.mu.Unlock()

	if advanced {
		m.notify()
	}
}

func (m *Machine) notify() {
	m.mu.Lock()
	sub := m.sub
	st := m.stateLocked()
	m.mu.Unlock()
	if sub != nil {
		sub(st)
	}
}
