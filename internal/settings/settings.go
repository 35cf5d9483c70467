// Package settings holds the shop configuration document: identity,
// service menu, waiting-room limits and the weekly/holiday schedule rules.
package settings

import (
	"time"
)

// Default values applied when a stored document omits a field.
const (
	DefaultOpen     = "09:30"
	DefaultClose    = "19:00"
	DefaultPIN      = "1234"
	DefaultSeats    = 2
	DefaultMaxQueue = 3

	// PrimaryService is the service kind used to estimate queue wait time.
	PrimaryService = "cut"
)

// Settings is the full shop configuration. It is read-only to the
// engine packages; the surrounding application loads and persists it.
type Settings struct {
	Shop     Shop               `json:"shop"`
	Waiting  Waiting            `json:"waiting"`
	Services map[string]Service `json:"services"`

	// WeeklyHours maps weekday (0=Sunday) to that day's regular hours.
	WeeklyHours map[time.Weekday]WeekdayHours `json:"businessHours"`

	// ClosedWeekdays lists weekdays closed every week. They override
	// WeeklyHours entries.
	ClosedWeekdays []time.Weekday `json:"closedDays"`

	// NthWeekdayClosures closes recurring days such as "2nd Tuesday".
	NthWeekdayClosures []NthWeekdayClosure `json:"weeklyClosed"`

	// HolidayHours applies on national holidays falling on a weekday
	// listed in HolidayOverrideWeekdays.
	HolidayHours            HourRange      `json:"holidayHours"`
	HolidayOverrideWeekdays []time.Weekday `json:"holidayOverrideDays"`

	// AdminPIN gates the admin view. Plain equality check, not a
	// security boundary.
	AdminPIN string `json:"adminPin"`
}

// Shop identifies the salon on the public view.
type Shop struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Waiting bounds the queue and the number of service chairs.
type Waiting struct {
	MaxCount  int `json:"maxCount"`
	SeatCount int `json:"seatCount"`
}

// Service is one entry of the configurable service menu.
type Service struct {
	Name    string `json:"name"`
	Minutes int    `json:"minutes"`
}

// WeekdayHours is the regular schedule for one weekday.
type WeekdayHours struct {
	Closed bool   `json:"closed"`
	Open   string `json:"open"`
	Close  string `json:"close"`
	Label  string `json:"label,omitempty"`
	Note   string `json:"note,omitempty"`
}

// NthWeekdayClosure closes every "Nth weekday of the month" (week 1-5).
type NthWeekdayClosure struct {
	Week    int          `json:"week"`
	Weekday time.Weekday `json:"day"`
}

// HourRange is a bare open/close pair.
type HourRange struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Default returns the documented default configuration.
func Default() *Settings {
	return &Settings{
		Shop: Shop{Name: "Hair Stage K&M"},
		Waiting: Waiting{
			MaxCount:  DefaultMaxQueue,
			SeatCount: DefaultSeats,
		},
		Services: map[string]Service{
			"cut":      {Name: "Cut", Minutes: 60},
			"special1": {Name: "Special 1", Minutes: 180},
			"special2": {Name: "Special 2", Minutes: 120},
		},
		WeeklyHours: map[time.Weekday]WeekdayHours{
			time.Sunday:    {Open: "08:30", Close: "18:00"},
			time.Monday:    {Closed: true, Open: DefaultOpen, Close: DefaultClose},
			time.Tuesday:   {Open: DefaultOpen, Close: DefaultClose},
			time.Wednesday: {Open: DefaultOpen, Close: DefaultClose},
			time.Thursday:  {Open: "13:00", Close: "21:00", Label: "evening", Note: "except holidays"},
			time.Friday:    {Open: DefaultOpen, Close: DefaultClose},
			time.Saturday:  {Open: DefaultOpen, Close: DefaultClose},
		},
		ClosedWeekdays: []time.Weekday{time.Monday},
		NthWeekdayClosures: []NthWeekdayClosure{
			{Week: 2, Weekday: time.Tuesday},
			{Week: 3, Weekday: time.Tuesday},
		},
		HolidayHours:            HourRange{Open: "08:30", Close: "18:00"},
		HolidayOverrideWeekdays: []time.Weekday{time.Thursday},
		AdminPIN:                DefaultPIN,
	}
}

// SeatCount returns the configured chair count, falling back to the default.
func (s *Settings) SeatCount() int {
	if s.Waiting.SeatCount > 0 {
		return s.Waiting.SeatCount
	}
	return DefaultSeats
}

// MaxQueue returns the waiting-queue capacity, falling back to the default.
func (s *Settings) MaxQueue() int {
	if s.Waiting.MaxCount > 0 {
		return s.Waiting.MaxCount
	}
	return DefaultMaxQueue
}

// ServiceDuration returns the duration in minutes for a service kind.
// Unknown kinds fall back to 60 minutes.
func (s *Settings) ServiceDuration(kind string) int {
	if svc, ok := s.Services[kind]; ok && svc.Minutes > 0 {
		return svc.Minutes
	}
	return 60
}

// ServiceName returns the display name for a service kind, or the kind
// itself when unconfigured.
func (s *Settings) ServiceName(kind string) string {
	if svc, ok := s.Services[kind]; ok && svc.Name != "" {
		return svc.Name
	}
	return kind
}

// IsClosedWeekday reports whether wd is a recurring full-closure weekday.
func (s *Settings) IsClosedWeekday(wd time.Weekday) bool {
	for _, d := range s.ClosedWeekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// IsHolidayOverrideWeekday reports whether holiday hours replace the
// regular schedule on wd when it is a national holiday.
func (s *Settings) IsHolidayOverrideWeekday(wd time.Weekday) bool {
	for _, d := range s.HolidayOverrideWeekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// PIN returns the admin PIN, falling back to the default.
func (s *Settings) PIN() string {
	if s.AdminPIN != "" {
		return s.AdminPIN
	}
	return DefaultPIN
}
