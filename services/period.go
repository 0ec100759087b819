package services

import (
	"log"
	"os"
	"time"

	"shop-community-system/models"
)

// Mission periods are anchored to a fixed local calendar: daily missions
// reset at 03:00 local, weekly missions at Monday 03:00 local. The zone
// comes from APP_TIMEZONE (shops operate in one country, so one zone).
var periodLocation = loadPeriodLocation()

func loadPeriodLocation() *time.Location {
	name := os.Getenv("APP_TIMEZONE")
	if name == "" {
		name = "Asia/Tokyo"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("⚠️  Invalid APP_TIMEZONE %q, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// PeriodLocation returns the calendar zone period math runs in.
func PeriodLocation() *time.Location {
	return periodLocation
}

// PeriodStart returns the start instant of the period containing now.
// Pure function: no stored period id anywhere — staleness is always
// re-derived by comparing a record's LastUpdated against a fresh
// PeriodStart. At the exact boundary, now belongs to the new period.
func PeriodStart(periodicity models.MissionPeriod, now time.Time) time.Time {
	local := now.In(periodLocation)

	switch periodicity {
	case models.MissionWeekly:
		// Monday 03:00 of the current week; time.Weekday counts Sunday=0.
		daysSinceMonday := (int(local.Weekday()) + 6) % 7
		monday := time.Date(local.Year(), local.Month(), local.Day(), 3, 0, 0, 0, periodLocation).
			AddDate(0, 0, -daysSinceMonday)
		if local.Before(monday) {
			monday = monday.AddDate(0, 0, -7)
		}
		return monday
	default:
		start := time.Date(local.Year(), local.Month(), local.Day(), 3, 0, 0, 0, periodLocation)
		if local.Before(start) {
			start = start.AddDate(0, 0, -1)
		}
		return start
	}
}

// isStale reports whether a progress record predates the current period.
// Strict <: a record written exactly at the boundary is already fresh.
func isStale(lastUpdated time.Time, periodicity models.MissionPeriod, now time.Time) bool {
	return lastUpdated.Before(PeriodStart(periodicity, now))
}
