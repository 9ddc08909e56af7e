// Package etcd provides a ripple.Source that streams an etcd key through
// the native watch API.
package etcd

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Source watches an etcd key and emits its value as a snapshot on every
// put. The watch resumes from the revision of the initial read, so no
// write between read and watch is missed.
type Source struct {
	client *clientv3.Client
	key    string
}

// Option configures a Source.
type Option func(*Source)

// New creates a Source for the given etcd key.
func New(client *clientv3.Client, key string, opts ...Option) *Source {
	s := &Source{
		client: client,
		key:    key,
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
	resp, err := s.client.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("etcd: initial get: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)

		// A missing key is not an error; the first put produces the
		// first snapshot.
		if len(resp.Kvs) > 0 {
			select {
			case out <- resp.Kvs[0].Value:
			case <-ctx.Done():
				return
			}
		}

		// Resume right after the revision the initial read saw.
		watchChan := s.client.Watch(ctx, s.key, clientv3.WithRev(resp.Header.Revision+1))

		for {
			select {
			case <-ctx.Done():
				return
			case watchResp, ok := <-watchChan:
				if !ok {
					return
				}
				if watchResp.Err() != nil {
					continue
				}

				for _, event := range watchResp.Events {
					// Deletes carry no snapshot.
					if event.Type != clientv3.EventTypePut {
						continue
					}
					select {
					case out <- event.Kv.Value:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}
