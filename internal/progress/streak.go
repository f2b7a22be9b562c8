package progress

import (
	"math"
	"time"
)

// Streak counts consecutive fully completed days ending today. completed
// holds the YYYY-MM-DD dates on which every task was done; a day with no
// tasks is never in the set, so an empty today yields zero.
func Streak(completed []string, today time.Time) int {
	set := make(map[string]struct{}, len(completed))
	for _, d := range completed {
		set[d] = struct{}{}
	}

	today = StartOfDay(today)
	streak := 0
	for {
		if _, ok := set[FormatDate(AddDays(today, -streak))]; !ok {
			return streak
		}
		streak++
	}
}

// Percentage returns round(part/total*100), or 0 when total is not positive.
func Percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
