// Package zookeeper provides a ripple.Source that streams a ZooKeeper
// node through the native watch API.
package zookeeper

import (
	"context"

	"github.com/go-zookeeper/zk"
)

// Source streams the data of a single ZooKeeper node.
//
// ZooKeeper watches fire once, so the source re-arms after every event by
// reading the node again, which also emits the fresh data. A deleted node
// emits nothing until it is recreated.
type Source struct {
	conn *zk.Conn
	path string
}

// Option configures a Source.
type Option func(*Source)

// New creates a Source for the node at path.
func New(conn *zk.Conn, path string, opts ...Option) *Source {
	s := &Source{
		conn: conn,
		path: path,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch emits the node's current data immediately, then again after every
// change. The channel closes when ctx is cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)

	go func() {
		defer close(out)

		for {
			data, _, events, err := s.conn.GetW(s.path)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// The node is missing. Park on an existence watch until it
				// shows up, then loop back to read it.
				exists, _, existsEvents, err := s.conn.ExistsW(s.path)
				if err != nil {
					return
				}
				if exists {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case <-existsEvents:
					continue
				}
			}

			select {
			case out <- data:
			case <-ctx.Done():
				return
			}

			select {
			case <-ctx.Done():
				return
			case event := <-events:
				if event.Type == zk.EventNodeDeleted {
					continue
				}
				// The next read re-arms the watch and picks up the new data.
			}
		}
	}()

	return out, nil
}
