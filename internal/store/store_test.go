package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"machiai/internal/schedule"
	"machiai/internal/settings"
	"machiai/internal/state"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadSettingsEmptyDatabase(t *testing.T) {
	db := openTestDB(t)

	cfg, err := db.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Shop.Name != settings.Default().Shop.Name {
		t.Errorf("expected defaults, got %+v", cfg.Shop)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cfg := settings.Default()
	cfg.Shop.Name = "Test Salon"
	cfg.AdminPIN = "4321"
	cfg.Waiting.MaxCount = 5

	if err := db.SaveSettings(ctx, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Shop.Name != "Test Salon" || got.AdminPIN != "4321" || got.MaxQueue() != 5 {
		t.Errorf("round trip lost fields: %+v", got)
	}

	// Saving again overwrites the single row.
	cfg.Shop.Name = "Renamed"
	if err := db.SaveSettings(ctx, cfg); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err = db.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if got.Shop.Name != "Renamed" {
		t.Errorf("upsert did not replace: %q", got.Shop.Name)
	}
}

func TestCorruptSettingsYieldDefaults(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		"INSERT INTO shop_settings (id, document) VALUES (1, ?)", "{broken")
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := db.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PIN() != settings.DefaultPIN {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadStateEmptyDatabase(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 6, 3, 10, 0, 0, 0, time.Local)

	st, err := db.LoadState(context.Background(), settings.Default(), now)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.HasActivity() || st.TempClosedToday {
		t.Errorf("expected a fresh state, got %+v", st)
	}
	if st.LastChecked.String() != "2026-06-03" {
		t.Errorf("LastChecked = %q", st.LastChecked)
	}
}

func TestStateRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cfg := settings.Default()
	now := time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC)

	st := state.Fresh(cfg, now)
	st.QueueCount = 2
	st.TempClosedToday = true
	st.Sessions[1] = &state.Session{Kind: "cut", StartedAt: now.Add(-30 * time.Minute)}
	st.SpecialDates[schedule.Date{Year: 2026, Month: time.June, Day: 10}] = schedule.Override{Closed: true}

	if err := db.SaveState(ctx, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.LoadState(ctx, cfg, now)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.QueueCount != 2 || !got.TempClosedToday {
		t.Errorf("scalars lost: %+v", got)
	}
	if got.Sessions[0] != nil || got.Sessions[1] == nil || got.Sessions[1].Kind != "cut" {
		t.Errorf("sessions lost: %+v", got.Sessions)
	}
	if !got.SpecialDates[schedule.Date{Year: 2026, Month: time.June, Day: 10}].Closed {
		t.Errorf("special dates lost: %+v", got.SpecialDates)
	}
}

func TestLoadStateNormalizesAgainstSettings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 3, 10, 0, 0, 0, time.Local)

	// Save under generous limits, reload under the defaults.
	big := settings.Default()
	big.Waiting.MaxCount = 10
	big.Waiting.SeatCount = 5

	st := state.Fresh(big, now)
	st.QueueCount = 10
	if err := db.SaveState(ctx, st); err != nil {
		t.Fatal(err)
	}

	cfg := settings.Default()
	got, err := db.LoadState(ctx, cfg, now)
	if err != nil {
		t.Fatal(err)
	}
	if got.QueueCount != cfg.MaxQueue() {
		t.Errorf("queue = %d, want %d", got.QueueCount, cfg.MaxQueue())
	}
	if len(got.Sessions) != cfg.SeatCount() {
		t.Errorf("sessions = %d, want %d", len(got.Sessions), cfg.SeatCount())
	}
}

func TestCorruptStateYieldsFresh(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 3, 10, 0, 0, 0, time.Local)

	_, err := db.ExecContext(ctx,
		"INSERT INTO shop_state (id, document) VALUES (1, ?)", "not json")
	if err != nil {
		t.Fatal(err)
	}

	st, err := db.LoadState(ctx, settings.Default(), now)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.HasActivity() {
		t.Errorf("expected a fresh state, got %+v", st)
	}
}
