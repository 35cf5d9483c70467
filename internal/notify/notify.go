// Package notify mirrors state changes across clients over a Redis
// pub/sub channel. Every client publishes after a successful save and
// applies full states received from others.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"machiai/internal/state"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "machiai:state"

// envelope wraps a state with its origin so publishers can drop their
// own echoes.
type envelope struct {
	Origin string       `json:"origin"`
	State  *state.State `json:"state"`
}

// Notifier broadcasts and receives operational-state updates.
type Notifier struct {
	rdb     *redis.Client
	channel string
	origin  string
	logger  zerolog.Logger
}

// New creates a notifier with a unique origin ID for this process.
func New(rdb *redis.Client, channel string, logger zerolog.Logger) *Notifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Notifier{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Publish broadcasts the state to every subscribed client.
func (n *Notifier) Publish(ctx context.Context, st *state.State) error {
	payload, err := json.Marshal(envelope{Origin: n.origin, State: st})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish update: %w", err)
	}
	return nil
}

// Listen delivers remote state updates to handler until ctx is done.
// Updates published by this process are skipped; malformed payloads are
// logged and dropped.
func (n *Notifier) Listen(ctx context.Context, handler func(*state.State)) {
	sub := n.rdb.Subscribe(ctx, n.channel)
	defer sub.Close()

	n.logger.Info().Str("channel", n.channel).Msg("subscribed to state updates")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				n.logger.Warn().Err(err).Msg("dropping malformed state update")
				continue
			}
			if env.Origin == n.origin || env.State == nil {
				continue
			}
			handler(env.State)
		}
	}
}
