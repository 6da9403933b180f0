package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddMonthsClamped adds calendar months, clamping to the last valid day of
// the target month. time.AddDate would normalize Jan 31 + 1 month to Mar 3;
// billing due dates must land on Feb 28/29 instead.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	target := first.AddDate(0, months, 0)

	last := daysInMonth(target.Year(), target.Month())
	if d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SplitEqual divides a total into count equal parts, truncated to cents.
// No remainder redistribution: count × part may undershoot the total by up
// to count−1 cents.
func SplitEqual(total decimal.Decimal, count int) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count))).Truncate(2)
}
