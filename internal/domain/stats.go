package domain

import "time"

// DailyTotal is one bar of the last-7-days chart.
type DailyTotal struct {
	Day     time.Time
	Seconds int64
}

// StudyStats aggregates study seconds over calendar windows ending now.
type StudyStats struct {
	Today     int64
	Week      int64
	Month     int64
	Year      int64
	Last7Days []DailyTotal
}

// Windows holds the local-time boundaries used to compute StudyStats.
type Windows struct {
	TodayStart time.Time
	WeekStart  time.Time
	MonthStart time.Time
	YearStart  time.Time
}

// StatsWindows computes the window starts for now in now's location.
// Weeks start on Monday.
func StatsWindows(now time.Time) Windows {
	y, m, d := now.Date()
	loc := now.Location()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	offset := (int(today.Weekday()) + 6) % 7
	return Windows{
		TodayStart: today,
		WeekStart:  today.AddDate(0, 0, -offset),
		MonthStart: time.Date(y, m, 1, 0, 0, 0, 0, loc),
		YearStart:  time.Date(y, 1, 1, 0, 0, 0, 0, loc),
	}
}
