package obligations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func endOf(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

func TestNextDueDateAdvancesOneMonth(t *testing.T) {
	assert.Equal(t, endOf(2024, time.July, 10), NextDueDate(date(2024, time.June, 15), 10))
	assert.Equal(t, endOf(2024, time.July, 10), NextDueDate(date(2024, time.June, 1), 10))
}

func TestNextDueDateYearRollover(t *testing.T) {
	got := NextDueDate(date(2024, time.December, 31), 20)
	assert.Equal(t, endOf(2025, time.January, 20), got)
}

func TestNextDueDateDoesNotOverflowShortMonth(t *testing.T) {
	assert.Equal(t, endOf(2024, time.February, 25), NextDueDate(date(2024, time.January, 31), 25))
	assert.Equal(t, endOf(2024, time.February, 29), NextDueDate(date(2024, time.January, 31), 31))
}

func TestNextQuarterlyDueDateRollsIntoNextQuarter(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{date(2024, time.January, 5), endOf(2024, time.April, 20)},
		{date(2024, time.March, 31), endOf(2024, time.April, 20)},
		{date(2024, time.June, 15), endOf(2024, time.July, 20)},
		{date(2024, time.September, 30), endOf(2024, time.October, 20)},
		{date(2024, time.December, 1), endOf(2025, time.January, 20)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NextQuarterlyDueDate(tc.now, 20), tc.now.String())
	}
}

func TestQuarterlyLastMonthOfQuarterTargetsNextQuarter(t *testing.T) {
	for _, m := range []time.Month{time.March, time.June, time.September, time.December} {
		now := date(2024, m, 28)
		got := NextQuarterlyDueDate(now, 20)
		wantMonth := m%12 + 1
		assert.Equal(t, wantMonth, got.Month(), m.String())
	}
}

func TestYearlyDueDateLagsOneYear(t *testing.T) {
	assert.Equal(t, endOf(2025, time.April, 30), YearlyDueDate(2024, time.April, 30, time.UTC))
	assert.Equal(t, endOf(2025, time.March, 31), YearlyDueDate(2024, time.March, 31, time.UTC))
}
