// Package streak derives completion streaks from a habit's log history.
//
// Only consecutive calendar days count. The habit's target frequency is not consulted, so a
// weekdays-only habit still breaks its streak over a skipped day. Dates are compared as naive
// calendar days; callers pass already-localized keys.
package streak

import (
	"slices"

	"nutritrack/internal/datekey"
	"nutritrack/internal/models"
)

// Calculate walks the completed logs newest first. The current streak is the run ending at the
// most recent completed day; the longest streak is the longest run anywhere in the history.
func Calculate(logs []models.HabitLog) models.Streak {
	dates := completedDates(logs)
	if len(dates) == 0 {
		return models.Streak{}
	}

	last := dates[0]
	cursor := last.AddDays(1)

	var current, longest, running int
	inFirstRun := true
	for _, d := range dates {
		// A duplicate day neither extends nor breaks the run.
		if d.Equal(cursor) {
			continue
		}
		if cursor.DaysSince(d) == 1 {
			running++
			if inFirstRun {
				current = running
			}
		} else {
			longest = max(longest, running)
			running = 1
			inFirstRun = false
		}
		cursor = d
	}
	longest = max(longest, running, current)

	return models.Streak{
		CurrentStreak:     current,
		LongestStreak:     longest,
		LastCompletedDate: &last,
	}
}

func completedDates(logs []models.HabitLog) []datekey.Date {
	dates := make([]datekey.Date, 0, len(logs))
	for _, l := range logs {
		if l.Completed {
			dates = append(dates, l.LogDate)
		}
	}
	slices.SortFunc(dates, func(a, b datekey.Date) int { return b.Compare(a) })
	return dates
}
