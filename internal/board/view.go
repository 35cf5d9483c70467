package board

import (
	"context"
	"sort"
	"time"

	"machiai/internal/schedule"
	"machiai/internal/settings"
	"machiai/internal/state"
	"machiai/internal/status"
	"machiai/internal/wait"
)

// TodayHours is the resolved schedule for one day, as shown on the board.
type TodayHours struct {
	Closed  bool   `json:"closed"`
	Open    string `json:"open,omitempty"`
	Close   string `json:"close,omitempty"`
	Label   string `json:"label,omitempty"`
	Note    string `json:"note,omitempty"`
	Holiday bool   `json:"holiday"`
}

// SeatView is one service chair on the board.
type SeatView struct {
	Seat         int    `json:"seat"`
	Busy         bool   `json:"busy"`
	Kind         string `json:"kind,omitempty"`
	Name         string `json:"name,omitempty"`
	RemainingMin int    `json:"remainingMin"`
	NextFree     bool   `json:"nextFree"`
}

// WindowView is the projected service window for a new arrival.
type WindowView struct {
	Kind       string `json:"kind"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	CloseAt    string `json:"closeAt,omitempty"`
	NextFreeIn int    `json:"nextFreeIn"`
	TotalWait  int    `json:"totalWait"`
}

// NextOpeningView says when the shop opens next.
type NextOpeningView struct {
	Today bool   `json:"today"`
	Date  string `json:"date"`
	Open  string `json:"open"`
}

// SpecialDateView is one scheduled one-off override.
type SpecialDateView struct {
	Date   string `json:"date"`
	Closed bool   `json:"closed"`
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Note   string `json:"note,omitempty"`
}

// CustomerView is the public board snapshot.
type CustomerView struct {
	Shop         settings.Shop     `json:"shop"`
	Open         bool              `json:"open"`
	TempClosed   bool              `json:"tempClosed"`
	Today        TodayHours        `json:"today"`
	Queue        int               `json:"queue"`
	Seats        []SeatView        `json:"seats"`
	Window       WindowView        `json:"window"`
	Advice       string            `json:"advice"`
	NextOpening  *NextOpeningView  `json:"nextOpening,omitempty"`
	SpecialDates []SpecialDateView `json:"specialDates"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// AdminView is the staff-side snapshot.
type AdminView struct {
	Open         bool              `json:"open"`
	Queue        int               `json:"queue"`
	MaxQueue     int               `json:"maxQueue"`
	Seats        []SeatView        `json:"seats"`
	TempClosed   bool              `json:"tempClosed"`
	SpecialDates []SpecialDateView `json:"specialDates"`
}

// CustomerView builds the public snapshot. Viewing the board is itself a
// reconciliation trigger, so stale state corrects on page load.
func (b *Board) CustomerView(ctx context.Context) (CustomerView, error) {
	var v CustomerView
	err := b.do(ctx, func(ctx context.Context) error {
		if b.limiter.Allow() {
			b.reconcile(ctx)
		}
		v = buildCustomerView(b.cfg, b.st, b.now())
		return nil
	})
	return v, err
}

// AdminView builds the staff-side snapshot.
func (b *Board) AdminView(ctx context.Context) (AdminView, error) {
	var v AdminView
	err := b.do(ctx, func(ctx context.Context) error {
		if b.limiter.Allow() {
			b.reconcile(ctx)
		}
		v = buildAdminView(b.cfg, b.st, b.now())
		return nil
	})
	return v, err
}

func buildCustomerView(cfg *settings.Settings, st *state.State, now time.Time) CustomerView {
	today := schedule.DateOf(now)
	h := schedule.Resolve(today, cfg, st.SpecialDates)
	open := status.IsOpenNow(now, cfg, st)
	w := wait.ProjectedWindow(cfg, st, now)

	v := CustomerView{
		Shop:       cfg.Shop,
		Open:       open,
		TempClosed: st.TempClosedToday,
		Today: TodayHours{
			Closed:  h.Closed,
			Open:    h.Open,
			Close:   h.Close,
			Label:   h.Label,
			Note:    h.Note,
			Holiday: h.Holiday,
		},
		Queue: st.QueueCount,
		Seats: buildSeats(cfg, st, now),
		Window: WindowView{
			Kind:       w.Kind.String(),
			From:       w.From,
			To:         w.To,
			CloseAt:    w.CloseAt,
			NextFreeIn: w.NextFreeIn,
			TotalWait:  w.TotalWait,
		},
		Advice:       wait.Recommend(w.TotalWait, open, w.Kind == wait.WindowReceptionEnded).String(),
		SpecialDates: upcomingSpecialDates(st, today),
		UpdatedAt:    now,
	}

	if !open {
		if next := status.NextOpeningAt(now, cfg, st); next.Known {
			v.NextOpening = &NextOpeningView{
				Today: next.Today,
				Date:  next.Date.String(),
				Open:  next.Open,
			}
		}
	}
	return v
}

func buildAdminView(cfg *settings.Settings, st *state.State, now time.Time) AdminView {
	return AdminView{
		Open:         status.IsOpenNow(now, cfg, st),
		Queue:        st.QueueCount,
		MaxQueue:     cfg.MaxQueue(),
		Seats:        buildSeats(cfg, st, now),
		TempClosed:   st.TempClosedToday,
		SpecialDates: allSpecialDates(st),
	}
}

func buildSeats(cfg *settings.Settings, st *state.State, now time.Time) []SeatView {
	next, hasNext := wait.EarliestFreeing(cfg, st, now)
	seats := make([]SeatView, len(st.Sessions))
	for i, sess := range st.Sessions {
		sv := SeatView{Seat: i}
		if sess != nil {
			sv.Busy = true
			sv.Kind = sess.Kind
			sv.Name = cfg.ServiceName(sess.Kind)
			sv.RemainingMin = wait.Remaining(sess, cfg, now)
			sv.NextFree = hasNext && next.Seat == i
		}
		seats[i] = sv
	}
	return seats
}

// upcomingSpecialDates returns today's and future overrides, soonest first.
func upcomingSpecialDates(st *state.State, today schedule.Date) []SpecialDateView {
	out := make([]SpecialDateView, 0, len(st.SpecialDates))
	for d, ov := range st.SpecialDates {
		if d.Before(today) {
			continue
		}
		out = append(out, specialDateView(d, ov))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func allSpecialDates(st *state.State) []SpecialDateView {
	out := make([]SpecialDateView, 0, len(st.SpecialDates))
	for d, ov := range st.SpecialDates {
		out = append(out, specialDateView(d, ov))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func specialDateView(d schedule.Date, ov schedule.Override) SpecialDateView {
	return SpecialDateView{
		Date:   d.String(),
		Closed: ov.Closed,
		Open:   ov.Open,
		Close:  ov.Close,
		Note:   ov.Note,
	}
}
