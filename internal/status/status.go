// Package status answers whether the shop is open right now and when it
// opens next.
package status

import (
	"time"

	"machiai/internal/schedule"
	"machiai/internal/settings"
	"machiai/internal/state"
)

// scanDays bounds the forward search for the next open day.
const scanDays = 14

// IsOpenNow reports whether the shop is open at the given instant.
// A manual same-day closure wins over everything; otherwise the resolved
// hours apply, open-inclusive and close-exclusive.
func IsOpenNow(now time.Time, cfg *settings.Settings, st *state.State) bool {
	if st.TempClosedToday {
		return false
	}
	h := schedule.Resolve(schedule.DateOf(now), cfg, st.SpecialDates)
	if h.Closed {
		return false
	}
	open, err := schedule.ParseClock(h.Open)
	if err != nil {
		return false
	}
	closeAt, err := schedule.ParseClock(h.Close)
	if err != nil {
		return false
	}
	cur := schedule.MinutesOf(now)
	return cur >= open && cur < closeAt
}

// NextOpening describes when the shop opens next.
type NextOpening struct {
	// Known is false when no open day was found within the scan window.
	Known bool
	// Today is true when today's opening time is still ahead.
	Today bool
	Date  schedule.Date
	Open  string // "HH:MM"
}

// NextOpeningAt finds the next opening from now: today's opening time if
// it is still ahead and the shop is not manually closed, otherwise the
// first non-closed day within the next 14 days.
func NextOpeningAt(now time.Time, cfg *settings.Settings, st *state.State) NextOpening {
	today := schedule.DateOf(now)

	h := schedule.Resolve(today, cfg, st.SpecialDates)
	if !h.Closed && !st.TempClosedToday {
		if open, err := schedule.ParseClock(h.Open); err == nil && schedule.MinutesOf(now) < open {
			return NextOpening{Known: true, Today: true, Date: today, Open: h.Open}
		}
	}

	for i := 1; i <= scanDays; i++ {
		d := today.AddDays(i)
		dh := schedule.Resolve(d, cfg, st.SpecialDates)
		if !dh.Closed {
			return NextOpening{Known: true, Date: d, Open: dh.Open}
		}
	}

	return NextOpening{}
}
