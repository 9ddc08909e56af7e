// Package nats provides a ripple.Source that streams a NATS KV key
// through the JetStream watch API.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Source watches a NATS KV key and emits its value as a snapshot on every
// put. Deletes and purges are skipped.
type Source struct {
	kv  jetstream.KeyValue
	key string
}

// Option configures a Source.
type Option func(*Source)

// New creates a Source for the given KV key.
func New(kv jetstream.KeyValue, key string, opts ...Option) *Source {
	s := &Source{
		kv:  kv,
		key: key,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch begins observing the key and returns a channel that emits the
// key's value whenever it is put. The current value is emitted immediately
// so a feed starts from the live state.
func (s *Source) Watch(ctx context.Context) (<-chan []byte, error) {
	watcher, err := s.kv.Watch(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("nats: watch key: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer watcher.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				// A nil entry marks the end of the initial replay.
				if entry == nil {
					continue
				}
				if op := entry.Operation(); op == jetstream.KeyValueDelete || op == jetstream.KeyValuePurge {
					continue
				}

				select {
				case out <- entry.Value():
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
