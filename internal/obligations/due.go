package obligations

import (
	"time"

	"github.com/taxdesk/taxdesk/internal/calendar"
)

// endOfDay returns the last millisecond of the given calendar day. Days past
// the end of the month are clamped to its last day.
func endOfDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, 23, 59, 59, int(999*time.Millisecond), loc)
}

// NextDueDate returns day of the month following now, at end of day. Monthly
// obligations settle the previous month on a fixed day of the next one.
func NextDueDate(now time.Time, day int) time.Time {
	return endOfDay(now.Year(), now.Month()+1, day, now.Location())
}

// NextQuarterlyDueDate returns day of the first month of the quarter after
// the one containing now, at end of day.
func NextQuarterlyDueDate(now time.Time, day int) time.Time {
	quarter := calendar.Quarter(calendar.KeyOf(now))
	target := time.Month(quarter*3 + 1)
	return endOfDay(now.Year(), target, day, now.Location())
}

// YearlyDueDate returns the fixed date in year+1 at end of day. Annual
// returns lag the fiscal year they settle by one year.
func YearlyDueDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return endOfDay(year+1, month, day, loc)
}
