package services

import (
	"testing"
	"time"

	"shop-community-system/models"

	"github.com/stretchr/testify/assert"
)

// 2024-01-01 was a Monday; all instants below are built in the period
// calendar's own zone.

func localTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, periodLocation)
}

func TestPeriodStartDaily(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before 03:00 belongs to yesterday's period",
			now:  localTime(t, 2024, time.January, 3, 2, 0),
			want: localTime(t, 2024, time.January, 2, 3, 0),
		},
		{
			name: "after 03:00 belongs to today's period",
			now:  localTime(t, 2024, time.January, 3, 4, 0),
			want: localTime(t, 2024, time.January, 3, 3, 0),
		},
		{
			name: "exactly 03:00 is already the new period",
			now:  localTime(t, 2024, time.January, 3, 3, 0),
			want: localTime(t, 2024, time.January, 3, 3, 0),
		},
		{
			name: "midnight rolls back to previous calendar day",
			now:  localTime(t, 2024, time.January, 1, 0, 30),
			want: localTime(t, 2023, time.December, 31, 3, 0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeriodStart(models.MissionDaily, tt.now)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestPeriodStartWeekly(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midweek maps to this week's Monday 03:00",
			now:  localTime(t, 2024, time.January, 3, 12, 0),
			want: localTime(t, 2024, time.January, 1, 3, 0),
		},
		{
			name: "Monday before 03:00 is still last week",
			now:  localTime(t, 2024, time.January, 1, 1, 0),
			want: localTime(t, 2023, time.December, 25, 3, 0),
		},
		{
			name: "Monday exactly 03:00 starts the new week",
			now:  localTime(t, 2024, time.January, 1, 3, 0),
			want: localTime(t, 2024, time.January, 1, 3, 0),
		},
		{
			name: "Sunday night maps back to the past Monday",
			now:  localTime(t, 2024, time.January, 7, 23, 59),
			want: localTime(t, 2024, time.January, 1, 3, 0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeriodStart(models.MissionWeekly, tt.now)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestIsStaleStrictBoundary(t *testing.T) {
	now := localTime(t, 2024, time.January, 3, 10, 0)
	boundary := PeriodStart(models.MissionDaily, now)

	// A record written exactly at the boundary is fresh.
	assert.False(t, isStale(boundary, models.MissionDaily, now))
	assert.True(t, isStale(boundary.Add(-time.Second), models.MissionDaily, now))
	assert.False(t, isStale(boundary.Add(time.Second), models.MissionDaily, now))
}
