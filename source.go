package ripple

import "context"

// Source observes external state and emits raw snapshots on a channel.
// Implementations must emit the current snapshot immediately upon Watch()
// being called so a feed can populate its containers before the first
// change arrives.
type Source interface {
	// Watch begins observing and returns a channel that emits raw bytes
	// whenever the state changes. The channel is closed when the context is
	// canceled or an unrecoverable error occurs.
	//
	// Implementations should emit the current snapshot immediately to
	// support initial loading.
	Watch(ctx context.Context) (<-chan []byte, error)
}

// ChannelSource wraps an existing byte channel as a Source. Useful for
// testing and for producers that already emit snapshots.
type ChannelSource struct {
	ch   <-chan []byte
	sync bool
}

// NewChannelSource creates a ChannelSource that forwards values from the
// given channel through an internal goroutine.
func NewChannelSource(ch <-chan []byte) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// NewSyncChannelSource creates a ChannelSource that returns the wrapped
// channel directly, without an intermediate goroutine.
// Use with SyncMode() for deterministic testing.
func NewSyncChannelSource(ch <-chan []byte) *ChannelSource {
	return &ChannelSource{ch: ch, sync: true}
}

// Watch returns a channel that emits values from the wrapped channel.
func (s *ChannelSource) Watch(ctx context.Context) (<-chan []byte, error) {
	if s.sync {
		return s.ch, nil
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-s.ch:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
