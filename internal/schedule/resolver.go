// Package schedule resolves the effective business hours for any calendar
// date by layering one-off overrides, recurring closures and holiday rules
// over the weekly schedule.
package schedule

import (
	"machiai/internal/holiday"
	"machiai/internal/settings"
)

// Override is a one-off schedule entry for a specific date. Either the
// shop is closed, or it opens with the given hours.
type Override struct {
	Closed bool   `json:"closed"`
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Note   string `json:"note,omitempty"`
}

// DayHours is the resolved schedule for one date.
type DayHours struct {
	Closed  bool
	Open    string // "HH:MM", empty when closed
	Close   string
	Label   string
	Note    string
	Holiday bool // holiday hours were applied
}

// Span formats the hours as "HH:MM - HH:MM", or "" when closed.
func (h DayHours) Span() string {
	if h.Closed {
		return ""
	}
	return h.Open + " - " + h.Close
}

// Resolve returns the effective hours for a date. Precedence, highest
// first: special-date override, recurring weekday closure, Nth-weekday
// closure, holiday hours (only on override weekdays; a recurring closure
// beats a holiday), the weekly schedule, then the default hours. Special
// dates can force the shop open or closed regardless of recurring rules;
// a holiday on a non-override weekday keeps its normal hours.
func Resolve(d Date, cfg *settings.Settings, special map[Date]Override) DayHours {
	if ov, ok := special[d]; ok {
		if ov.Closed {
			return DayHours{Closed: true, Note: ov.Note}
		}
		return DayHours{Open: ov.Open, Close: ov.Close, Note: ov.Note}
	}

	wd := d.Weekday()
	if cfg.IsClosedWeekday(wd) {
		return DayHours{Closed: true}
	}

	week := d.WeekOfMonth()
	for _, c := range cfg.NthWeekdayClosures {
		if c.Weekday == wd && c.Week == week {
			return DayHours{Closed: true}
		}
	}

	if holiday.ForYear(d.Year)[d.String()] && cfg.IsHolidayOverrideWeekday(wd) {
		return DayHours{
			Open:    cfg.HolidayHours.Open,
			Close:   cfg.HolidayHours.Close,
			Holiday: true,
		}
	}

	if wh, ok := cfg.WeeklyHours[wd]; ok {
		return DayHours{
			Closed: wh.Closed,
			Open:   wh.Open,
			Close:  wh.Close,
			Label:  wh.Label,
			Note:   wh.Note,
		}
	}

	return DayHours{Open: settings.DefaultOpen, Close: settings.DefaultClose}
}
