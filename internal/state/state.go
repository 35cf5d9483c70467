// Package state holds the live operational state shared by every client:
// the waiting queue, the active chair sessions and the one-off schedule
// overrides.
package state

import (
	"time"

	"machiai/internal/schedule"
	"machiai/internal/settings"
)

// Session is a timed service occupying one chair.
type Session struct {
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"startedAt"`
}

// State is the single logical operational state. Mutations happen on the
// board loop; the persistence layer resolves concurrent writers by
// last-write-wins.
type State struct {
	// QueueCount is the number of waiting customers, 0..MaxQueue.
	QueueCount int `json:"queueCount"`

	// Sessions has one slot per chair; nil means the chair is free.
	Sessions []*Session `json:"activeServices"`

	// SpecialDates overrides the schedule for specific days and beats
	// every recurring rule.
	SpecialDates map[schedule.Date]schedule.Override `json:"specialDates"`

	// TempClosedToday marks a manual same-day closure. Cleared on
	// date rollover.
	TempClosedToday bool `json:"temporaryClosedToday"`

	// LastChecked is the date the rollover logic last ran on.
	LastChecked schedule.Date `json:"lastCheckedDate"`
}

// Fresh returns a reset state sized for the configured chairs, with
// today's date recorded.
func Fresh(cfg *settings.Settings, now time.Time) *State {
	return &State{
		Sessions:     make([]*Session, cfg.SeatCount()),
		SpecialDates: make(map[schedule.Date]schedule.Override),
		LastChecked:  schedule.DateOf(now),
	}
}

// Normalize clamps the state to the configured bounds: the session list
// is resized to the seat count and the queue capped at its maximum.
// Loaded and remotely received states pass through here before use.
func (s *State) Normalize(cfg *settings.Settings) {
	seats := cfg.SeatCount()
	for len(s.Sessions) < seats {
		s.Sessions = append(s.Sessions, nil)
	}
	if len(s.Sessions) > seats {
		s.Sessions = s.Sessions[:seats]
	}
	if s.QueueCount < 0 {
		s.QueueCount = 0
	}
	if max := cfg.MaxQueue(); s.QueueCount > max {
		s.QueueCount = max
	}
	if s.SpecialDates == nil {
		s.SpecialDates = make(map[schedule.Date]schedule.Override)
	}
}

// HasActivity reports whether anyone is waiting or being served.
func (s *State) HasActivity() bool {
	if s.QueueCount > 0 {
		return true
	}
	for _, sess := range s.Sessions {
		if sess != nil {
			return true
		}
	}
	return false
}

// ClearSessions frees every chair, keeping the slot count.
func (s *State) ClearSessions() {
	for i := range s.Sessions {
		s.Sessions[i] = nil
	}
}

// PruneExpiredSpecialDates drops entries strictly before today, keeping
// today's entry. Reports whether anything was removed.
func (s *State) PruneExpiredSpecialDates(today schedule.Date) bool {
	pruned := false
	for d := range s.SpecialDates {
		if d.Before(today) {
			delete(s.SpecialDates, d)
			pruned = true
		}
	}
	return pruned
}

// Clone returns a deep copy, so snapshots handed to other goroutines
// cannot observe later mutations.
func (s *State) Clone() *State {
	c := &State{
		QueueCount:      s.QueueCount,
		Sessions:        make([]*Session, len(s.Sessions)),
		SpecialDates:    make(map[schedule.Date]schedule.Override, len(s.SpecialDates)),
		TempClosedToday: s.TempClosedToday,
		LastChecked:     s.LastChecked,
	}
	for i, sess := range s.Sessions {
		if sess != nil {
			copied := *sess
			c.Sessions[i] = &copied
		}
	}
	for d, ov := range s.SpecialDates {
		c.SpecialDates[d] = ov
	}
	return c
}
