// Package holiday computes Japanese national holidays for a given year.
package holiday

import (
	"fmt"
	"time"
)

// fixed holidays: month/day pairs that never move.
var fixed = [][2]int{
	{1, 1},   // New Year's Day
	{2, 11},  // National Foundation Day
	{2, 23},  // Emperor's Birthday
	{4, 29},  // Showa Day
	{5, 3},   // Constitution Memorial Day
	{5, 4},   // Greenery Day
	{5, 5},   // Children's Day
	{8, 11},  // Mountain Day
	{11, 3},  // Culture Day
	{11, 23}, // Labor Thanksgiving Day
}

// happyMondays holds the "Nth Monday of month" holidays.
var happyMondays = []struct {
	Month int
	N     int
}{
	{1, 2},  // Coming of Age Day
	{7, 3},  // Marine Day
	{9, 3},  // Respect for the Aged Day
	{10, 2}, // Sports Day
}

// ForYear returns every national holiday of the year, keyed by its
// canonical YYYY-MM-DD form. The set includes substitute holidays
// (a holiday falling on Sunday shifts observance to the following day)
// and the citizens' holiday that appears when Respect for the Aged Day
// and the autumnal equinox are two calendar days apart.
func ForYear(year int) map[string]bool {
	base := make([]time.Time, 0, len(fixed)+len(happyMondays)+2)

	for _, md := range fixed {
		base = append(base, date(year, md[0], md[1]))
	}
	for _, hm := range happyMondays {
		base = append(base, nthMonday(year, hm.Month, hm.N))
	}
	base = append(base, date(year, 3, VernalEquinoxDay(year)))
	base = append(base, date(year, 9, AutumnalEquinoxDay(year)))

	holidays := make(map[string]bool, len(base)+4)
	for _, d := range base {
		holidays[key(d)] = true
	}

	// Substitute holidays: Sunday holidays observe the next day.
	for _, d := range base {
		if d.Weekday() == time.Sunday {
			holidays[key(d.AddDate(0, 0, 1))] = true
		}
	}

	// Citizens' holiday: when the autumnal equinox lands two days after
	// Respect for the Aged Day, the day in between is a holiday too.
	aged := nthMonday(year, 9, 3)
	equinox := date(year, 9, AutumnalEquinoxDay(year))
	if equinox.Sub(aged) == 48*time.Hour {
		holidays[key(aged.AddDate(0, 0, 1))] = true
	}

	return holidays
}

// Contains reports whether the calendar day of t is a national holiday.
func Contains(t time.Time) bool {
	return ForYear(t.Year())[fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())]
}

// VernalEquinoxDay returns the March day of the vernal equinox holiday.
// The linear approximations are documented as valid for 1900-2099; outside
// that range a fixed fallback of the 20th is used.
func VernalEquinoxDay(year int) int {
	switch {
	case year >= 1900 && year <= 1979:
		return int(20.8357 + 0.242194*float64(year-1980) - float64(floorDiv(year-1983, 4)))
	case year >= 1980 && year <= 2099:
		return int(20.8431 + 0.242194*float64(year-1980) - float64((year-1980)/4))
	default:
		return 20
	}
}

// AutumnalEquinoxDay returns the September day of the autumnal equinox
// holiday, with the same validity bounds as VernalEquinoxDay and a fixed
// fallback of the 23rd.
func AutumnalEquinoxDay(year int) int {
	switch {
	case year >= 1900 && year <= 1979:
		return int(23.2588 + 0.242194*float64(year-1980) - float64(floorDiv(year-1983, 4)))
	case year >= 1980 && year <= 2099:
		return int(23.2488 + 0.242194*float64(year-1980) - float64((year-1980)/4))
	default:
		return 23
	}
}

// nthMonday returns the Nth Monday of the month:
// day = 1 + (Monday - firstWeekday + 7) % 7 + (n-1)*7.
func nthMonday(year, month, n int) time.Time {
	first := date(year, month, 1)
	offset := (int(time.Monday) - int(first.Weekday()) + 7) % 7
	return date(year, month, 1+offset+(n-1)*7)
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func key(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// floorDiv divides rounding toward negative infinity, matching the
// floored division the pre-1980 equinox formulas require.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
