package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const guessEventsChannel = "snapguess:guesses"

// Bridge relays broadcast payloads through a redis pub/sub channel so that
// every running instance delivers them to its own connected clients. Local
// delivery happens when the subscription loop receives the message back.
type Bridge struct {
	logger     *slog.Logger
	rdb        *redis.Client
	dispatcher *Dispatcher
}

func NewBridge(logger *slog.Logger, rdb *redis.Client, dispatcher *Dispatcher) *Bridge {
	return &Bridge{
		logger:     logger,
		rdb:        rdb,
		dispatcher: dispatcher,
	}
}

// Broadcast publishes payload on the shared channel. If redis is
// unreachable the payload still reaches local clients directly; the caller
// never sees an error either way.
func (b *Bridge) Broadcast(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.rdb.Publish(ctx, guessEventsChannel, payload).Err(); err != nil {
		b.logger.Error("publishing event to redis", "error", err)
		b.dispatcher.Broadcast(payload)
	}
}

// Run consumes the shared channel and fans messages out to local
// connections until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, guessEventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatcher.Broadcast([]byte(msg.Payload))
		}
	}
}
