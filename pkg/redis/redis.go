// Package redis provides a ripple.Source that streams a Redis key through
// keyspace notifications.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Source watches a Redis key and emits its value as a snapshot on every
// write. Keyspace notifications must be enabled on the server:
//
//	CONFIG SET notify-keyspace-events KEA
//
// Or in redis.conf:
//
//	notify-keyspace-events KEA
type Source struct {
	client *redis.Client
	key    string
	db     int
}

// Option configures a Source.
type Option func(*Source)

// WithDatabase sets the logical database index used in the keyspace
// channel name. Defaults to 0. Must match the database the client
// operates on.
func WithDatabase(db int) Option {
	return func(s *Source) {
		s.db = db
	}
}

// New creates a Source for the given Redis key.
func New(client *redis.Client, key string, opts ...Option) *Source {
	s := &Source{
		client: client,
		key:    key,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch subscribes to keyspace notifications for the key and returns a
// channel that emits the key's value whenever it is written. The current
// value is emitted immediately so a feed starts from the live state.
func (s *Source) Watch(ctx context.Context) (<-chan []byte, error) {
	channel := fmt.Sprintf("__keyspace@%d__:%s", s.db, s.key)
	pubsub := s.client.Subscribe(ctx, channel)

	// Confirm the subscription before reporting success.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe keyspace notifications: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer pubsub.Close()

		// A missing key is not an error; the first write produces the
		// first snapshot.
		val, err := s.client.Get(ctx, s.key).Bytes()
		if err != nil && err != redis.Nil {
			return
		}
		if err == nil {
			select {
			case out <- val:
			case <-ctx.Done():
				return
			}
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				// The payload names the command. Only writes carry a new
				// value; del, expire and friends are skipped.
				switch msg.Payload {
				case "set", "hset", "mset", "setex", "psetex", "setnx":
					val, err := s.client.Get(ctx, s.key).Bytes()
					if err != nil {
						continue
					}
					select {
					case out <- val:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}
