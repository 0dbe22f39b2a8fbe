// Package stats aggregates a habit's log history into completion figures.
// All functions are pure and treat an empty history as a zero result.
package stats

import (
	"nutritrack/internal/datekey"
	"nutritrack/internal/models"
)

// WeeklyWindow is the length in days of the trailing window used by WeeklyCompletions.
const WeeklyWindow = 7

type Summary struct {
	CompletionRate    float64 `json:"completion_rate"`
	WeeklyCompletions int     `json:"weekly_completions"`
	TotalCompletions  int     `json:"total_completions"`
	TotalLogs         int     `json:"total_logs"`
}

// CompletionRate is the percentage of logged days marked completed. Days with no log at all
// are not counted, so the rate is over logged days rather than scheduled days.
func CompletionRate(logs []models.HabitLog) float64 {
	if len(logs) == 0 {
		return 0
	}
	done := 0
	for _, l := range logs {
		if l.Completed {
			done++
		}
	}
	return float64(done) / float64(len(logs)) * 100
}

// WeeklyCompletions counts completed logs dated within the 7 days ending at now, inclusive.
func WeeklyCompletions(logs []models.HabitLog, now datekey.Date) int {
	from := now.AddDays(-(WeeklyWindow - 1))
	n := 0
	for _, l := range logs {
		if !l.Completed || l.LogDate.Before(from) || l.LogDate.After(now) {
			continue
		}
		n++
	}
	return n
}

// TotalCompletions sums Count across completed logs, so multi-count habits
// ("8 glasses of water") contribute each unit.
func TotalCompletions(logs []models.HabitLog) int {
	total := 0
	for _, l := range logs {
		if l.Completed {
			total += l.Count
		}
	}
	return total
}

func Summarize(logs []models.HabitLog, now datekey.Date) Summary {
	return Summary{
		CompletionRate:    CompletionRate(logs),
		WeeklyCompletions: WeeklyCompletions(logs, now),
		TotalCompletions:  TotalCompletions(logs),
		TotalLogs:         len(logs),
	}
}
