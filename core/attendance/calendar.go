package attendance

import (
	"fmt"

	"github.com/trezcool/masomo-lms/core"
)

const (
	weekLabelDateLayout = "Jan 2"
	weekdayLayout       = "Mon"
)

// Day is a day of the attendance calendar of a batch.
type Day struct {
	Date        core.Date
	WeekIndex   int
	WeekLabel   string
	WeekdayName string
}

// WeekLabel renders a week header, e.g. "Week 2 · Jan 8 – Jan 14".
func WeekLabel(index int, weekStart, weekEnd core.Date) string {
	return fmt.Sprintf(
		"Week %d · %s – %s", index, weekStart.Format(weekLabelDateLayout), weekEnd.Format(weekLabelDateLayout),
	)
}

// Calendar returns every day between `start` and `end` (inclusive), grouped in 7-day weeks counted from `start`.
// The last week is truncated at `end`.
func Calendar(start, end core.Date) []Day {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil
	}
	total := end.DaysSince(start) + 1
	days := make([]Day, 0, total)
	for offset := 0; offset < total; offset++ {
		current := start.AddDays(offset)
		weekIndex := offset/7 + 1
		weekStart := start.AddDays((weekIndex - 1) * 7)
		weekEnd := weekStart.AddDays(6)
		if weekEnd.After(end) {
			weekEnd = end
		}
		days = append(days, Day{
			Date:        current,
			WeekIndex:   weekIndex,
			WeekLabel:   WeekLabel(weekIndex, weekStart, weekEnd),
			WeekdayName: current.Format(weekdayLayout),
		})
	}
	return days
}
