// Package lifecycle resets stale operational state: date rollovers,
// lingering data after closing time, and activity left over while the
// shop is closed.
package lifecycle

import (
	"time"

	"machiai/internal/schedule"
	"machiai/internal/settings"
	"machiai/internal/state"
	"machiai/internal/status"
)

// closingGrace is how many minutes past closing the state may linger
// before the post-closing reset fires.
const closingGrace = 30

// Result records which reset rules fired during one reconciliation pass.
type Result struct {
	RolledOver     bool
	PostCloseReset bool
	ClosedNowReset bool
}

// Changed reports whether the state was mutated and must be persisted.
func (r Result) Changed() bool {
	return r.RolledOver || r.PostCloseReset || r.ClosedNowReset
}

// Reconcile applies the reset rules in order. Every rule is checked on
// every pass; each is idempotent, so redundant passes are harmless.
func Reconcile(cfg *settings.Settings, st *state.State, now time.Time) Result {
	var res Result
	today := schedule.DateOf(now)

	// Date rollover: a new day clears the manual closure, the queue and
	// every chair.
	if st.LastChecked != today {
		st.TempClosedToday = false
		st.QueueCount = 0
		st.ClearSessions()
		st.LastChecked = today
		res.RolledOver = true
	}

	// Post-closing reset: on business days, activity lingering past the
	// grace period after closing is cleared. Closed days have no closing
	// time to measure against.
	h := schedule.Resolve(today, cfg, st.SpecialDates)
	if !h.Closed {
		if closeAt, err := schedule.ParseClock(h.Close); err == nil {
			if schedule.MinutesOf(now) > closeAt+closingGrace && st.HasActivity() {
				st.QueueCount = 0
				st.ClearSessions()
				res.PostCloseReset = true
			}
		}
	}

	// Closed-now reset: any activity observed while the shop is not open
	// is cleared. Overlaps the rules above; re-clearing an already-empty
	// state is a no-op.
	if st.HasActivity() && !status.IsOpenNow(now, cfg, st) {
		st.QueueCount = 0
		st.ClearSessions()
		res.ClosedNowReset = true
	}

	return res
}
