package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStudySession_CoversDeltaEndingAtEnd(t *testing.T) {
	s := NewStudySession("abc", testNow, 95)
	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, testNow.Add(-95*time.Second), s.StartTime)
	require.NotNil(t, s.EndTime)
	assert.Equal(t, testNow, *s.EndTime)
	assert.Equal(t, int64(95), s.DurationSeconds)
}

func TestStudySession_Validate(t *testing.T) {
	require.NoError(t, NewStudySession("a", testNow, 30).Validate())

	noStart := StudySession{DurationSeconds: 10}
	assert.Error(t, noStart.Validate())

	negative := StudySession{StartTime: testNow, DurationSeconds: -1}
	assert.Error(t, negative.Validate())

	before := testNow.Add(-time.Minute)
	inverted := StudySession{StartTime: testNow, EndTime: &before}
	err := inverted.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before start time")

	open := StudySession{StartTime: testNow, DurationSeconds: 0}
	assert.NoError(t, open.Validate(), "end time is optional")
}

func TestStatsWindows(t *testing.T) {
	// Sunday 15 June 2025.
	w := StatsWindows(testNow)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), w.TodayStart)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), w.WeekStart, "weeks start on Monday")
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), w.MonthStart)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), w.YearStart)

	monday := time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), StatsWindows(monday).WeekStart)
}
