package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"machiai/internal/schedule"
	"machiai/internal/settings"
	"machiai/internal/state"
)

func wed(hour, min int) time.Time {
	return time.Date(2026, 6, 3, hour, min, 0, 0, time.Local)
}

type fakeStore struct {
	cfg *settings.Settings
	st  *state.State

	stateSaves    int
	settingsSaves int
	saveErr       error
}

func (f *fakeStore) LoadSettings(ctx context.Context) (*settings.Settings, error) {
	if f.cfg == nil {
		f.cfg = settings.Default()
	}
	return f.cfg, nil
}

func (f *fakeStore) SaveSettings(ctx context.Context, cfg *settings.Settings) error {
	f.settingsSaves++
	f.cfg = cfg
	return nil
}

func (f *fakeStore) LoadState(ctx context.Context, cfg *settings.Settings, now time.Time) (*state.State, error) {
	if f.st == nil {
		f.st = state.Fresh(cfg, now)
	}
	return f.st, nil
}

func (f *fakeStore) SaveState(ctx context.Context, st *state.State) error {
	f.stateSaves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.st = st.Clone()
	return nil
}

type fakeBroadcaster struct {
	published int
	err       error
}

func (f *fakeBroadcaster) Publish(ctx context.Context, st *state.State) error {
	f.published++
	return f.err
}

func newTestBoard(t *testing.T, fs *fakeStore, fb *fakeBroadcaster, now time.Time) *Board {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var broadcast Broadcaster
	if fb != nil {
		broadcast = fb
	}
	b, err := New(ctx, fs, broadcast, zerolog.Nop(), Options{
		Refresh: time.Hour,
		Now:     func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go b.Run(ctx)
	return b
}

func TestQueueMutations(t *testing.T) {
	fs := &fakeStore{}
	fb := &fakeBroadcaster{}
	b := newTestBoard(t, fs, fb, wed(10, 0))
	ctx := context.Background()

	for i := 0; i < settings.DefaultMaxQueue; i++ {
		if err := b.IncrementQueue(ctx); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	if err := b.IncrementQueue(ctx); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if fs.st.QueueCount != settings.DefaultMaxQueue {
		t.Errorf("persisted queue = %d", fs.st.QueueCount)
	}
	if fb.published == 0 {
		t.Error("mutations must broadcast")
	}

	if err := b.SetQueueCount(ctx, 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := b.SetQueueCount(ctx, settings.DefaultMaxQueue+1); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	if err := b.DecrementQueue(ctx); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	saves := fs.stateSaves
	if err := b.DecrementQueue(ctx); err != nil {
		t.Fatalf("decrement at zero: %v", err)
	}
	if fs.stateSaves != saves {
		t.Error("decrement at zero must not persist")
	}
}

func TestServiceMutations(t *testing.T) {
	fs := &fakeStore{}
	b := newTestBoard(t, fs, nil, wed(10, 0))
	ctx := context.Background()

	if err := b.IncrementQueue(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.StartService(ctx, 0, "cut"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if fs.st.Sessions[0] == nil || fs.st.Sessions[0].Kind != "cut" {
		t.Errorf("session not persisted: %+v", fs.st.Sessions)
	}
	if fs.st.QueueCount != 0 {
		t.Errorf("starting a service must pull from the queue, queue = %d", fs.st.QueueCount)
	}

	if err := b.StartService(ctx, 0, "cut"); !errors.Is(err, ErrSeatBusy) {
		t.Errorf("expected ErrSeatBusy, got %v", err)
	}
	if err := b.StartService(ctx, 9, "cut"); !errors.Is(err, ErrBadSeat) {
		t.Errorf("expected ErrBadSeat, got %v", err)
	}

	if err := b.EndService(ctx, 1); !errors.Is(err, ErrSeatEmpty) {
		t.Errorf("expected ErrSeatEmpty, got %v", err)
	}
	if err := b.EndService(ctx, 0); err != nil {
		t.Fatalf("end: %v", err)
	}
	if fs.st.Sessions[0] != nil {
		t.Error("session not cleared")
	}
}

func TestSpecialDates(t *testing.T) {
	fs := &fakeStore{}
	b := newTestBoard(t, fs, nil, wed(10, 0))
	ctx := context.Background()

	d := schedule.Date{Year: 2026, Month: time.June, Day: 10}

	if err := b.AddSpecialDate(ctx, schedule.Date{}, schedule.Override{Closed: true}); err == nil {
		t.Error("zero date must be rejected")
	}
	if err := b.AddSpecialDate(ctx, d, schedule.Override{Open: "25:00"}); err == nil {
		t.Error("malformed hours must be rejected")
	}

	if err := b.AddSpecialDate(ctx, d, schedule.Override{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	ov := fs.st.SpecialDates[d]
	if ov.Open != settings.DefaultOpen || ov.Close != settings.DefaultClose {
		t.Errorf("default hours not applied: %+v", ov)
	}

	if err := b.RemoveSpecialDate(ctx, d); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := b.RemoveSpecialDate(ctx, d); err == nil {
		t.Error("removing a missing entry must fail")
	}
}

func TestPruneExpiredSpecialDatesOnStartup(t *testing.T) {
	cfg := settings.Default()
	st := state.Fresh(cfg, wed(10, 0))
	st.SpecialDates[schedule.Date{Year: 2026, Month: time.May, Day: 1}] = schedule.Override{Closed: true}
	st.SpecialDates[schedule.Date{Year: 2026, Month: time.June, Day: 3}] = schedule.Override{Closed: true}

	fs := &fakeStore{cfg: cfg, st: st}
	newTestBoard(t, fs, nil, wed(10, 0))

	if len(fs.st.SpecialDates) != 1 {
		t.Errorf("got %d special dates, want only today's", len(fs.st.SpecialDates))
	}
	if fs.stateSaves == 0 {
		t.Error("pruning must persist")
	}
}

func TestPINOperations(t *testing.T) {
	fs := &fakeStore{}
	b := newTestBoard(t, fs, nil, wed(10, 0))
	ctx := context.Background()

	if !b.VerifyPIN(ctx, settings.DefaultPIN) {
		t.Error("default PIN must verify")
	}
	if b.VerifyPIN(ctx, "0000") {
		t.Error("wrong PIN must not verify")
	}

	if err := b.ChangePIN(ctx, "0000", "9999"); !errors.Is(err, ErrWrongPIN) {
		t.Errorf("expected ErrWrongPIN, got %v", err)
	}
	if err := b.ChangePIN(ctx, settings.DefaultPIN, "12ab"); err == nil {
		t.Error("non-numeric PIN must be rejected")
	}
	if err := b.ChangePIN(ctx, settings.DefaultPIN, "9999"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if fs.settingsSaves != 1 {
		t.Errorf("settings saves = %d, want 1", fs.settingsSaves)
	}
	if !b.VerifyPIN(ctx, "9999") {
		t.Error("new PIN must verify")
	}
}

func TestApplyRemoteNormalizes(t *testing.T) {
	fs := &fakeStore{}
	b := newTestBoard(t, fs, nil, wed(10, 0))
	ctx := context.Background()

	remote := state.Fresh(settings.Default(), wed(10, 0))
	remote.QueueCount = 99
	remote.Sessions = nil

	if err := b.ApplyRemote(ctx, remote); err != nil {
		t.Fatalf("apply: %v", err)
	}

	v, err := b.AdminView(ctx)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if v.Queue != settings.DefaultMaxQueue {
		t.Errorf("queue = %d, want clamped to %d", v.Queue, settings.DefaultMaxQueue)
	}
	if len(v.Seats) != settings.DefaultSeats {
		t.Errorf("seats = %d, want %d", len(v.Seats), settings.DefaultSeats)
	}
}

func TestMutationSurvivesSaveFailure(t *testing.T) {
	fs := &fakeStore{saveErr: errors.New("disk full")}
	fb := &fakeBroadcaster{err: errors.New("redis down")}
	b := newTestBoard(t, fs, fb, wed(10, 0))
	ctx := context.Background()

	if err := b.IncrementQueue(ctx); err != nil {
		t.Fatalf("increment: %v", err)
	}
	v, err := b.AdminView(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Queue != 1 {
		t.Errorf("in-memory queue = %d, want 1", v.Queue)
	}
}

func TestCustomerView(t *testing.T) {
	fs := &fakeStore{}
	b := newTestBoard(t, fs, nil, wed(10, 0))
	ctx := context.Background()

	if err := b.IncrementQueue(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.StartService(ctx, 0, "special1"); err != nil {
		t.Fatal(err)
	}
	if err := b.IncrementQueue(ctx); err != nil {
		t.Fatal(err)
	}

	v, err := b.CustomerView(ctx)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !v.Open {
		t.Error("shop must be open on Wednesday at 10:00")
	}
	if v.Today.Open != "09:30" || v.Today.Close != "19:00" {
		t.Errorf("today = %+v", v.Today)
	}
	if v.Queue != 1 {
		t.Errorf("queue = %d, want 1", v.Queue)
	}
	if len(v.Seats) != settings.DefaultSeats {
		t.Fatalf("seats = %d", len(v.Seats))
	}
	seat := v.Seats[0]
	if !seat.Busy || seat.Kind != "special1" || seat.Name != "Special 1" {
		t.Errorf("seat = %+v", seat)
	}
	if seat.RemainingMin != 180 {
		t.Errorf("remaining = %d, want 180", seat.RemainingMin)
	}
	if !seat.NextFree {
		t.Error("only busy seat must be marked next free")
	}
	if v.Seats[1].Busy {
		t.Error("seat 1 must be free")
	}
	if v.Window.Kind != "range" {
		t.Errorf("window kind = %q", v.Window.Kind)
	}
	if v.Advice == "" || v.Advice == "closed" {
		t.Errorf("advice = %q", v.Advice)
	}
	if v.NextOpening != nil {
		t.Error("open shop has no next opening")
	}
}

func TestCustomerViewWhileClosed(t *testing.T) {
	fs := &fakeStore{}
	b := newTestBoard(t, fs, nil, wed(8, 0))
	ctx := context.Background()

	v, err := b.CustomerView(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Open {
		t.Error("shop opens at 09:30")
	}
	if v.Window.Kind != "closed" || v.Advice != "closed" {
		t.Errorf("window = %+v, advice = %q", v.Window, v.Advice)
	}
	if v.NextOpening == nil || !v.NextOpening.Today || v.NextOpening.Open != "09:30" {
		t.Errorf("next opening = %+v", v.NextOpening)
	}
}

func TestViewTriggersReconciliation(t *testing.T) {
	cfg := settings.Default()
	st := state.Fresh(cfg, wed(10, 0).AddDate(0, 0, -1))
	st.QueueCount = 2
	st.TempClosedToday = true

	fs := &fakeStore{cfg: cfg, st: st}
	b := newTestBoard(t, fs, nil, wed(10, 0))

	v, err := b.CustomerView(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Queue != 0 || v.TempClosed {
		t.Errorf("stale state survived the view: %+v", v)
	}
}
