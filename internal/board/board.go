// Package board owns the in-memory settings and state and serializes
// every computation and mutation through a single goroutine. The periodic
// timer, remote updates and user actions are all commands into the same
// loop, so the engine never needs locks and redundant triggers collapse
// into idempotent reconciliation passes.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"machiai/internal/lifecycle"
	"machiai/internal/metrics"
	"machiai/internal/schedule"
	"machiai/internal/settings"
	"machiai/internal/state"
)

var (
	ErrSeatBusy  = errors.New("seat is already in use")
	ErrSeatEmpty = errors.New("seat has no active service")
	ErrBadSeat   = errors.New("no such seat")
	ErrQueueFull = errors.New("waiting queue is full")
	ErrWrongPIN  = errors.New("wrong PIN")
)

// Store persists the two documents the board works on.
type Store interface {
	LoadSettings(ctx context.Context) (*settings.Settings, error)
	SaveSettings(ctx context.Context, cfg *settings.Settings) error
	LoadState(ctx context.Context, cfg *settings.Settings, now time.Time) (*state.State, error)
	SaveState(ctx context.Context, st *state.State) error
}

// Broadcaster pushes a saved state to the other clients.
type Broadcaster interface {
	Publish(ctx context.Context, st *state.State) error
}

// Options tune the board loop.
type Options struct {
	// Refresh is the periodic re-evaluation interval.
	Refresh time.Duration
	// TriggerBudget caps reconciliation passes per minute across all
	// trigger sources.
	TriggerBudget int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type command struct {
	fn   func(ctx context.Context) error
	done chan error
}

// Board is the reconciliation loop plus the operations exposed to the
// presentation layer.
type Board struct {
	store     Store
	broadcast Broadcaster
	logger    zerolog.Logger
	limiter   *rate.Limiter
	refresh   time.Duration
	now       func() time.Time

	cfg *settings.Settings
	st  *state.State

	cmds chan command
}

// New loads the settings and state and prepares the board. Expired
// special dates are pruned once here; today's entry is retained.
func New(ctx context.Context, store Store, broadcast Broadcaster, logger zerolog.Logger, opts Options) (*Board, error) {
	if opts.Refresh <= 0 {
		opts.Refresh = 30 * time.Second
	}
	if opts.TriggerBudget <= 0 {
		opts.TriggerBudget = 30
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cfg, err := store.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	st, err := store.LoadState(ctx, cfg, opts.Now())
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	st.Normalize(cfg)

	b := &Board{
		store:     store,
		broadcast: broadcast,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Limit(float64(opts.TriggerBudget)/60.0), opts.TriggerBudget),
		refresh:   opts.Refresh,
		now:       opts.Now,
		cfg:       cfg,
		st:        st,
		cmds:      make(chan command),
	}

	if st.PruneExpiredSpecialDates(schedule.DateOf(opts.Now())) {
		b.logger.Info().Msg("pruned expired special dates")
		b.persist(ctx)
	}
	return b, nil
}

// Run executes the board loop until ctx is done. Every public operation
// blocks until Run picks it up.
func (b *Board) Run(ctx context.Context) {
	ticker := time.NewTicker(b.refresh)
	defer ticker.Stop()

	b.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if b.limiter.Allow() {
				b.reconcile(ctx)
			}
		case cmd := <-b.cmds:
			cmd.done <- cmd.fn(ctx)
		}
	}
}

// do runs fn on the board loop and waits for its result.
func (b *Board) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case b.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reconcile applies the lifecycle rules and persists when they mutate
// the state.
func (b *Board) reconcile(ctx context.Context) {
	res := lifecycle.Reconcile(b.cfg, b.st, b.now())
	if !res.Changed() {
		return
	}
	if res.RolledOver {
		metrics.IncStateReset("rollover")
		b.logger.Info().Msg("date rollover: state reset")
	}
	if res.PostCloseReset {
		metrics.IncStateReset("post_close")
		b.logger.Info().Msg("past closing time: state reset")
	}
	if res.ClosedNowReset {
		metrics.IncStateReset("closed_now")
		b.logger.Info().Msg("shop closed: state reset")
	}
	b.persist(ctx)
}

// persist saves the state and broadcasts it. Failures are logged and
// otherwise ignored; the in-memory copy stays authoritative until the
// next successful save or remote overwrite.
func (b *Board) persist(ctx context.Context) {
	if err := b.store.SaveState(ctx, b.st); err != nil {
		b.logger.Error().Err(err).Msg("state save failed, keeping in-memory copy")
	} else {
		metrics.IncStateSave()
	}
	if b.broadcast == nil {
		return
	}
	if err := b.broadcast.Publish(ctx, b.st); err != nil {
		metrics.IncPublishFailure()
		b.logger.Warn().Err(err).Msg("state broadcast failed")
	}
}

// ApplyRemote replaces the in-memory state with one received from
// another client. Last write observed wins; the update is normalized
// and reconciled but not re-broadcast unless reconciliation changed it.
func (b *Board) ApplyRemote(ctx context.Context, st *state.State) error {
	return b.do(ctx, func(ctx context.Context) error {
		st.Normalize(b.cfg)
		b.st = st
		metrics.IncRemoteUpdate()
		if b.limiter.Allow() {
			b.reconcile(ctx)
		}
		return nil
	})
}

// IncrementQueue adds one waiting customer.
func (b *Board) IncrementQueue(ctx context.Context) error {
	return b.do(ctx, func(ctx context.Context) error {
		if b.st.QueueCount >= b.cfg.MaxQueue() {
			return ErrQueueFull
		}
		b.st.QueueCount++
		b.persist(ctx)
		return nil
	})
}

// DecrementQueue removes one waiting customer, never going below zero.
func (b *Board) DecrementQueue(ctx context.Context) error {
	return b.do(ctx, func(ctx context.Context) error {
		if b.st.QueueCount > 0 {
			b.st.QueueCount--
			b.persist(ctx)
		}
		return nil
	})
}

// SetQueueCount sets the queue to an exact value within bounds.
func (b *Board) SetQueueCount(ctx context.Context, n int) error {
	return b.do(ctx, func(ctx context.Context) error {
		if n < 0 || n > b.cfg.MaxQueue() {
			return ErrQueueFull
		}
		b.st.QueueCount = n
		b.persist(ctx)
		return nil
	})
}

// StartService occupies a chair with the given service kind and pulls
// one customer off the queue.
func (b *Board) StartService(ctx context.Context, seat int, kind string) error {
	return b.do(ctx, func(ctx context.Context) error {
		if seat < 0 || seat >= len(b.st.Sessions) {
			return ErrBadSeat
		}
		if b.st.Sessions[seat] != nil {
			return ErrSeatBusy
		}
		b.st.Sessions[seat] = &state.Session{Kind: kind, StartedAt: b.now()}
		if b.st.QueueCount > 0 {
			b.st.QueueCount--
		}
		b.persist(ctx)
		return nil
	})
}

// EndService frees a chair.
func (b *Board) EndService(ctx context.Context, seat int) error {
	return b.do(ctx, func(ctx context.Context) error {
		if seat < 0 || seat >= len(b.st.Sessions) {
			return ErrBadSeat
		}
		if b.st.Sessions[seat] == nil {
			return ErrSeatEmpty
		}
		b.st.Sessions[seat] = nil
		b.persist(ctx)
		return nil
	})
}

// SetTemporaryClosure marks or clears a manual same-day closure.
func (b *Board) SetTemporaryClosure(ctx context.Context, closed bool) error {
	return b.do(ctx, func(ctx context.Context) error {
		b.st.TempClosedToday = closed
		b.persist(ctx)
		return nil
	})
}

// AddSpecialDate registers a one-off schedule override. Open overrides
// get the default hours when none are given; hours must be well-formed
// HH:MM values.
func (b *Board) AddSpecialDate(ctx context.Context, d schedule.Date, ov schedule.Override) error {
	return b.do(ctx, func(ctx context.Context) error {
		if d.IsZero() {
			return fmt.Errorf("special date requires a date")
		}
		if !ov.Closed {
			if ov.Open == "" {
				ov.Open = settings.DefaultOpen
			}
			if ov.Close == "" {
				ov.Close = settings.DefaultClose
			}
			if !schedule.ValidClock(ov.Open) || !schedule.ValidClock(ov.Close) {
				return fmt.Errorf("special date %s: malformed hours", d)
			}
		}
		b.st.SpecialDates[d] = ov
		b.persist(ctx)
		return nil
	})
}

// RemoveSpecialDate deletes a one-off override.
func (b *Board) RemoveSpecialDate(ctx context.Context, d schedule.Date) error {
	return b.do(ctx, func(ctx context.Context) error {
		if _, ok := b.st.SpecialDates[d]; !ok {
			return fmt.Errorf("no special date %s", d)
		}
		delete(b.st.SpecialDates, d)
		b.persist(ctx)
		return nil
	})
}

// VerifyPIN checks an admin PIN. Plain equality; the admin view is a
// convenience gate, not a security boundary.
func (b *Board) VerifyPIN(ctx context.Context, pin string) bool {
	ok := false
	_ = b.do(ctx, func(ctx context.Context) error {
		ok = pin == b.cfg.PIN()
		return nil
	})
	return ok
}

// ChangePIN replaces the admin PIN after checking the current one.
func (b *Board) ChangePIN(ctx context.Context, current, next string) error {
	return b.do(ctx, func(ctx context.Context) error {
		if current != b.cfg.PIN() {
			return ErrWrongPIN
		}
		if len(next) != 4 {
			return fmt.Errorf("PIN must be 4 digits")
		}
		for _, r := range next {
			if r < '0' || r > '9' {
				return fmt.Errorf("PIN must be 4 digits")
			}
		}
		b.cfg.AdminPIN = next
		if err := b.store.SaveSettings(ctx, b.cfg); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		return nil
	})
}
