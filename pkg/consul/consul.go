// Package consul provides a ripple.Source that streams a Consul KV key
// through blocking queries.
package consul

import (
	"context"
	"fmt"

	"github.com/hashicorp/consul/api"
)

// Source watches a Consul KV key and emits its value as a snapshot on
// every index advance. Long polling is done with blocking queries, so an
// idle key costs one outstanding request.
type Source struct {
	client *api.Client
	key    string
}

// Option configures a Source.
type Option func(*Source)

// New creates a Source for the given KV key.
func New(client *api.Client, key string, opts ...Option) *Source {
	s := &Source{
		client: client,
		key:    key,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch begins polling the KV key and returns a channel that emits the
// key's value whenever its modify index advances. The current value is
// emitted immediately so a feed starts from the live state.
func (s *Source) Watch(ctx context.Context) (<-chan []byte, error) {
	kv := s.client.KV()

	pair, meta, err := kv.Get(s.key, nil)
	if err != nil {
		return nil, fmt.Errorf("consul: initial kv get: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)

		lastIndex := meta.LastIndex

		// A missing key is not an error; the first write produces the
		// first snapshot.
		if pair != nil {
			select {
			case out <- pair.Value:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// The blocking query parks until the index moves past
			// lastIndex or the wait time elapses.
			opts := &api.QueryOptions{
				WaitIndex: lastIndex,
			}
			opts = opts.WithContext(ctx)

			pair, meta, err := kv.Get(s.key, opts)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}

			if meta.LastIndex <= lastIndex {
				continue
			}
			lastIndex = meta.LastIndex

			// Index advanced with no pair means the key was deleted.
			if pair == nil {
				continue
			}

			select {
			case out <- pair.Value:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
