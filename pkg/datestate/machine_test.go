package datestate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jan15 = time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

func newTestMachine(t *testing.T) (*Machine, *ManualScheduler, *[]State) {
	t.Helper()
	sched := NewManualScheduler()
	m := NewMachine(WithScheduler(sched), WithStartDate(jan15.Add(13*time.Hour)))
	var got []State
	m.OnUpdate(func(s State) { got = append(got, s) })
	t.Cleanup(m.Dispose)
	return m, sched, &got
}

func TestNewDefaults(t *testing.T) {
	m, _, _ := newTestMachine(t)
	st := m.State()
	assert.Equal(t, jan15, st.Date, "start date is normalised to midnight")
	assert.False(t, st.IsPlaying)
	assert.Equal(t, 1, st.SpeedMultiplier)
	assert.Equal(t, "January 15, 2025", st.FormattedDate())
	assert.Equal(t, "▶", st.PlayGlyph())
	assert.Equal(t, "1x", st.SpeedLabel())
}

func TestNextThenPreviousRoundTrip(t *testing.T) {
	m, _, got := newTestMachine(t)
	m.NextDay()
	assert.Equal(t, jan15.AddDate(0, 0, 1), m.Date())
	m.PreviousDay()
	assert.Equal(t, jan15, m.Date())
	assert.Len(t, *got, 2)
}

func TestToggleSpeedTwice(t *testing.T) {
	m, _, got := newTestMachine(t)
	m.ToggleSpeed()
	assert.Equal(t, 2, m.SpeedMultiplier())
	m.ToggleSpeed()
	assert.Equal(t, 1, m.SpeedMultiplier())
	require.Len(t, *got, 2)
	assert.Equal(t, 2, (*got)[0].SpeedMultiplier)
	assert.False(t, (*got)[0].IsPlaying, "speed toggle keeps play state")
}

func TestSetSpeedMultiplierClamps(t *testing.T) {
	m, _, _ := newTestMachine(t)
	m.SetSpeedMultiplier(5)
	assert.Equal(t, 2, m.SpeedMultiplier())
	m.SetSpeedMultiplier(0)
	assert.Equal(t, 1, m.SpeedMultiplier())
}

func TestPlayPauseNotifies(t *testing.T) {
	m, sched, got := newTestMachine(t)
	m.Play()
	m.Play()
	assert.True(t, m.IsPlaying())
	assert.Equal(t, 1, sched.Pending(), "second Play must not start a second loop")

	m.Pause()
	m.Pause()
	assert.False(t, m.IsPlaying())
	assert.Equal(t, 0, sched.Pending())
	require.Len(t, *got, 2)
	assert.True(t, (*got)[0].IsPlaying)
	assert.False(t, (*got)[1].IsPlaying)
}

func TestTogglePlayPause(t *testing.T) {
	m, _, _ := newTestMachine(t)
	m.TogglePlayPause()
	assert.True(t, m.IsPlaying())
	m.TogglePlayPause()
	assert.False(t, m.IsPlaying())
}

func TestAdvancementLoop(t *testing.T) {
	m, sched, got := newTestMachine(t)
	t0 := time.Unix(1_700_000_000, 0)

	m.Play()
	*got = nil

	sched.Fire(t0) // first frame records the reference only
	assert.Equal(t, jan15, m.Date())

	sched.Fire(t0.Add(500 * time.Millisecond))
	assert.Equal(t, jan15, m.Date())

	sched.Fire(t0.Add(1000 * time.Millisecond))
	assert.Equal(t, jan15.AddDate(0, 0, 1), m.Date())
	require.Len(t, *got, 1)

	// The reference resets on advance.
	sched.Fire(t0.Add(1900 * time.Millisecond))
	assert.Equal(t, jan15.AddDate(0, 0, 1), m.Date())
	sched.Fire(t0.Add(2000 * time.Millisecond))
	assert.Equal(t, jan15.AddDate(0, 0, 2), m.Date())
	assert.Equal(t, 1, sched.Pending(), "loop keeps rescheduling while playing")
}

func TestAdvancementAtDoubleSpeed(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	t0 := time.Unix(1_700_000_000, 0)
	m.SetSpeedMultiplier(2)
	m.Play()
	sched.Fire(t0)
	sched.Fire(t0.Add(499 * time.Millisecond))
	assert.Equal(t, jan15, m.Date())
	sched.Fire(t0.Add(500 * time.Millisecond))
	assert.Equal(t, jan15.AddDate(0, 0, 1), m.Date())
}

func TestPauseStopsAdvancement(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	t0 := time.Unix(1_700_000_000, 0)
	m.Play()
	sched.Fire(t0)
	m.Pause()
	assert.Zero(t, sched.Fire(t0.Add(5*time.Second)))
	assert.Equal(t, jan15, m.Date())
}

func TestReplayResetsReference(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	t0 := time.Unix(1_700_000_000, 0)
	m.Play()
	sched.Fire(t0)
	m.Pause()
	m.Play()
	// Long gap while paused must not count toward the next day.
	sched.Fire(t0.Add(10 * time.Second))
	assert.Equal(t, jan15, m.Date())
}

func TestDisposeAfterPlay(t *testing.T) {
	m, sched, got := newTestMachine(t)
	t0 := time.Unix(1_700_000_000, 0)
	m.Play()
	*got = nil

	m.Dispose()
	m.Dispose()
	assert.Equal(t, 0, sched.Pending())
	sched.Fire(t0)
	sched.Fire(t0.Add(5 * time.Second))
	m.NextDay()
	m.Play()
	assert.Empty(t, *got, "no notifications after dispose")
	assert.Equal(t, 0, sched.Pending())
}

func TestSetDateAndReset(t *testing.T) {
	now := time.Date(2026, time.March, 3, 17, 45, 0, 0, time.UTC)
	sched := NewManualScheduler()
	m := NewMachine(WithScheduler(sched), WithClock(func() time.Time { return now }))
	defer m.Dispose()

	assert.Equal(t, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), m.Date())
	m.SetDate(time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), m.Date())
	m.Reset()
	assert.Equal(t, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), m.Date())
}

func TestLastSubscriberWins(t *testing.T) {
	m, _, first := newTestMachine(t)
	var second []State
	m.OnUpdate(func(s State) { second = append(second, s) })
	m.NextDay()
	assert.Empty(t, *first)
	assert.Len(t, second, 1)
}

func TestIndependentInstances(t *testing.T) {
	a, _, _ := newTestMachine(t)
	b, _, _ := newTestMachine(t)
	a.NextDay()
	assert.NotEqual(t, a.Date(), b.Date())
}

func TestFrameSchedulerCancel(t *testing.T) {
	s := &FrameScheduler{Interval: time.Hour}
	fired := make(chan struct{}, 1)
	cancel := s.Schedule(func(time.Time) { fired <- struct{}{} })
	cancel()
	cancel()
	select {
	case <-fired:
		t.Fatal("cancelled callback fired")
	default:
	}
}

func TestFrameSchedulerDrivesMachine(t *testing.T) {
	m := NewMachine(WithScheduler(&FrameScheduler{Interval: time.Millisecond}),
		WithDayDuration(5*time.Millisecond), WithStartDate(jan15))
	defer m.Dispose()

	advanced := make(chan State, 16)
	m.OnUpdate(func(s State) {
		if s.Date.After(jan15) {
			select {
			case advanced <- s:
			default:
			}
		}
	})
	m.Play()
	select {
	case st := <-advanced:
		assert.True(t, st.IsPlaying)
	case <-time.After(2 * time.Second):
		t.Fatal("machine never advanced on real timers")
	}
}
