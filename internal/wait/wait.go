// Package wait estimates how long a new arrival waits before being served.
package wait

import (
	"time"

	"machiai/internal/schedule"
	"machiai/internal/settings"
	"machiai/internal/state"
	"machiai/internal/status"
)

// estimateStep is the granularity estimates are rounded up to.
const estimateStep = 5

// Remaining returns the minutes left in a session, clamped at zero once
// the nominal duration has elapsed.
func Remaining(sess *state.Session, cfg *settings.Settings, now time.Time) int {
	elapsed := int(now.Sub(sess.StartedAt) / time.Minute)
	if r := cfg.ServiceDuration(sess.Kind) - elapsed; r > 0 {
		return r
	}
	return 0
}

// NextFree identifies the chair that frees up soonest.
type NextFree struct {
	Seat      int
	Kind      string
	Remaining int
}

// EarliestFreeing returns the active session with the least remaining
// time. Ties go to the lower seat index. ok is false when every chair
// is free.
func EarliestFreeing(cfg *settings.Settings, st *state.State, now time.Time) (NextFree, bool) {
	best := NextFree{}
	found := false
	for i, sess := range st.Sessions {
		if sess == nil {
			continue
		}
		r := Remaining(sess, cfg, now)
		if !found || r < best.Remaining {
			best = NextFree{Seat: i, Kind: sess.Kind, Remaining: r}
			found = true
		}
	}
	return best, found
}

// TotalWait returns the projected wait in minutes: the earliest-freeing
// chair's remaining time plus the queue estimated at the primary service
// duration per waiting customer.
func TotalWait(cfg *settings.Settings, st *state.State, now time.Time) int {
	total := 0
	if next, ok := EarliestFreeing(cfg, st, now); ok {
		total += next.Remaining
	}
	return total + st.QueueCount*cfg.ServiceDuration(settings.PrimaryService)
}

// WindowKind classifies a projected service window.
type WindowKind int

const (
	// WindowClosed means the shop is not open right now.
	WindowClosed WindowKind = iota
	// WindowImmediate means a chair is free and nobody is waiting.
	WindowImmediate
	// WindowReceptionEnded means serving a new arrival would run past
	// closing time.
	WindowReceptionEnded
	// WindowPoint is a single estimated service time.
	WindowPoint
	// WindowRange is an estimated earliest-to-latest service interval.
	WindowRange
)

// String returns the kind's wire name.
func (k WindowKind) String() string {
	switch k {
	case WindowImmediate:
		return "immediate"
	case WindowReceptionEnded:
		return "reception_ended"
	case WindowPoint:
		return "point"
	case WindowRange:
		return "range"
	default:
		return "closed"
	}
}

// Window is the projected time at which a new arrival would be served.
type Window struct {
	Kind WindowKind

	// From and To are "HH:MM" bounds. Point estimates set only To.
	From string
	To   string

	// CloseAt carries today's closing time for WindowReceptionEnded.
	CloseAt string

	// NextFreeIn is the minutes until a chair frees up, 0 when idle.
	NextFreeIn int

	// TotalWait is the unwidened projected wait in minutes.
	TotalWait int
}

// ProjectedWindow computes the service window for a customer arriving
// now. The raw wait is widened to a 0.9x-1.1x band, both ends rounded up
// to 5-minute marks; the window collapses to a point estimate when the
// band is degenerate. Arrivals that could not be served before closing
// get WindowReceptionEnded.
func ProjectedWindow(cfg *settings.Settings, st *state.State, now time.Time) Window {
	if !status.IsOpenNow(now, cfg, st) {
		return Window{Kind: WindowClosed}
	}

	if !st.HasActivity() {
		return Window{Kind: WindowImmediate}
	}

	h := schedule.Resolve(schedule.DateOf(now), cfg, st.SpecialDates)
	if h.Closed {
		return Window{Kind: WindowClosed}
	}
	closeAt, err := schedule.ParseClock(h.Close)
	if err != nil {
		return Window{Kind: WindowClosed}
	}

	base := 0
	nextFreeIn := 0
	if next, ok := EarliestFreeing(cfg, st, now); ok {
		base = next.Remaining
		nextFreeIn = next.Remaining
	}
	total := base + st.QueueCount*cfg.ServiceDuration(settings.PrimaryService)

	low := ceilStep(total * 9 / 10)
	high := ceilStep((total*11 + 9) / 10)

	cur := schedule.MinutesOf(now)
	if cur+high+cfg.ServiceDuration(settings.PrimaryService) > closeAt {
		return Window{Kind: WindowReceptionEnded, CloseAt: h.Close, TotalWait: total}
	}

	from := roundUpMinutes(now.Add(time.Duration(low) * time.Minute))
	to := roundUpMinutes(now.Add(time.Duration(high) * time.Minute))

	w := Window{
		From:       from.Format("15:04"),
		To:         to.Format("15:04"),
		NextFreeIn: nextFreeIn,
		TotalWait:  total,
	}
	if low == high || low == 0 {
		w.Kind = WindowPoint
		w.From = ""
	} else {
		w.Kind = WindowRange
	}
	return w
}

// ceilStep rounds m up to the next estimateStep boundary.
func ceilStep(m int) int {
	return (m + estimateStep - 1) / estimateStep * estimateStep
}

// roundUpMinutes rounds the minute-of-hour up to the next estimateStep
// mark, rolling into the next hour at :56 and later.
func roundUpMinutes(t time.Time) time.Time {
	m := t.Minute()
	r := (m + estimateStep - 1) / estimateStep * estimateStep
	return t.Add(time.Duration(r-m) * time.Minute)
}
