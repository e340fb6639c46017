package stopwatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/studyclock/internal/domain"
)

const (
	testTick  = 5 * time.Millisecond
	testFlush = 20 * time.Millisecond
)

func startLoop(t *testing.T, f *fixture) (*Loop, context.CancelFunc) {
	t.Helper()
	f.timer.Load(context.Background())
	loop := NewLoop(f.timer, WithTickInterval(testTick), WithAutoFlushInterval(testFlush))
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	return loop, cancel
}

func TestLoop_StartStop(t *testing.T) {
	f := newFixture(t)
	loop, _ := startLoop(t, f)
	ctx := context.Background()

	snap, err := loop.Start(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Running)

	f.clock.Advance(95 * time.Second)
	snap, err = loop.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.Equal(t, int64(95), snap.ElapsedSeconds)
	assert.Equal(t, int64(95), snap.LastSavedSeconds)
	require.Len(t, f.sink.Sent(), 1)
}

func TestLoop_NoTicksAfterStop(t *testing.T) {
	f := newFixture(t)
	loop, _ := startLoop(t, f)
	ctx := context.Background()

	_, err := loop.Start(ctx)
	require.NoError(t, err)
	f.clock.Advance(40 * time.Second)
	_, err = loop.Stop(ctx)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	time.Sleep(10 * testFlush)

	snap, err := loop.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40), snap.ElapsedSeconds)
	assert.Len(t, f.sink.Sent(), 1)
}

func TestLoop_TicksRefreshElapsed(t *testing.T) {
	f := newFixture(t)
	loop, _ := startLoop(t, f)
	ctx := context.Background()

	_, err := loop.Start(ctx)
	require.NoError(t, err)
	f.clock.Advance(7 * time.Second)

	assert.Eventually(t, func() bool {
		snap, err := loop.Snapshot(ctx)
		return err == nil && snap.ElapsedSeconds == 7
	}, time.Second, testTick)
}

func TestLoop_AutoFlushFires(t *testing.T) {
	f := newFixture(t)
	loop, _ := startLoop(t, f)
	ctx := context.Background()

	_, err := loop.Start(ctx)
	require.NoError(t, err)
	f.clock.Advance(45 * time.Second)

	assert.Eventually(t, func() bool {
		return len(f.sink.Sent()) == 1
	}, time.Second, testTick)
	assert.Equal(t, int64(45), f.sink.Sent()[0].DurationSeconds)

	// Below the minimum again, so later flush ticks are quiet.
	time.Sleep(5 * testFlush)
	assert.Len(t, f.sink.Sent(), 1)
}

func TestLoop_ToggleAndReset(t *testing.T) {
	f := newFixture(t)
	loop, _ := startLoop(t, f)
	ctx := context.Background()

	snap, err := loop.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Running)

	f.clock.Advance(3 * time.Second)
	snap, err = loop.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.Equal(t, int64(3), snap.ElapsedSeconds)

	snap, err = loop.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, snap.Phase())
}

func TestLoop_CancelAbandons(t *testing.T) {
	f := newFixture(t)
	loop, cancel := startLoop(t, f)
	ctx := context.Background()

	_, err := loop.Start(ctx)
	require.NoError(t, err)
	f.clock.Advance(20 * time.Second)

	cancel()
	<-loop.Done()

	beaconed := f.sink.Beaconed()
	require.Len(t, beaconed, 1)
	assert.Equal(t, int64(20), beaconed[0].DurationSeconds)

	_, ok := f.value(t, KeyRunning)
	assert.False(t, ok)

	_, err = loop.Start(ctx)
	assert.ErrorIs(t, err, ErrLoopClosed)
}

func TestLoop_PublishesUpdates(t *testing.T) {
	f := newFixture(t)
	loop, _ := startLoop(t, f)

	_, err := loop.Start(context.Background())
	require.NoError(t, err)

	select {
	case snap := <-loop.Updates():
		assert.True(t, snap.Running)
	case <-time.After(time.Second):
		t.Fatal("no update published")
	}
}

func TestLoop_CommandRespectsCallerContext(t *testing.T) {
	f := newFixture(t)
	f.timer.Load(context.Background())
	loop := NewLoop(f.timer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loop.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
