package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestTimerState_Phase(t *testing.T) {
	start := testNow
	cases := []struct {
		name  string
		state TimerState
		want  TimerPhase
	}{
		{"zero", TimerState{}, PhaseIdle},
		{"running", TimerState{Running: true, StartedAt: &start}, PhaseRunning},
		{"running from zero", TimerState{Running: true, StartedAt: &start, ElapsedSeconds: 0}, PhaseRunning},
		{"paused", TimerState{ElapsedSeconds: 40}, PhasePaused},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.state.Phase(), tc.name)
	}
}

func TestTimerState_Unsaved(t *testing.T) {
	assert.Equal(t, int64(25), TimerState{ElapsedSeconds: 95, LastSavedSeconds: 70}.Unsaved())
	assert.Equal(t, int64(0), TimerState{ElapsedSeconds: 60, LastSavedSeconds: 60}.Unsaved())
	assert.Equal(t, int64(0), TimerState{ElapsedSeconds: 0, LastSavedSeconds: 60}.Unsaved(),
		"reset leaves lastSaved above elapsed; nothing is unsaved")
}

func TestTimerState_ElapsedAt_FloorsToWholeSeconds(t *testing.T) {
	start := testNow
	s := TimerState{Running: true, StartedAt: &start}
	assert.Equal(t, int64(0), s.ElapsedAt(testNow.Add(999*time.Millisecond)))
	assert.Equal(t, int64(1), s.ElapsedAt(testNow.Add(1000*time.Millisecond)))
	assert.Equal(t, int64(125), s.ElapsedAt(testNow.Add(125500*time.Millisecond)))
}

func TestTimerState_ElapsedAt_ClockBehindStart(t *testing.T) {
	start := testNow
	s := TimerState{Running: true, StartedAt: &start}
	assert.Equal(t, int64(0), s.ElapsedAt(testNow.Add(-5*time.Second)))
}

func TestTimerState_ElapsedAt_NoStart(t *testing.T) {
	s := TimerState{ElapsedSeconds: 40}
	assert.Equal(t, int64(40), s.ElapsedAt(testNow))
}
