// Package postgres provides a ripple.Source that streams a table row
// through LISTEN/NOTIFY.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Source watches a row in a key/value table and emits its value as a
// snapshot whenever a notification names the key. The table needs a
// trigger that posts the row key on the notification channel:
//
//	CREATE OR REPLACE FUNCTION notify_state_change() RETURNS trigger AS $$
//	BEGIN
//	    PERFORM pg_notify('state_changed', NEW.key);
//	    RETURN NEW;
//	END;
//	$$ LANGUAGE plpgsql;
//
//	CREATE TRIGGER state_change_trigger
//	    AFTER INSERT OR UPDATE ON state
//	    FOR EACH ROW EXECUTE FUNCTION notify_state_change();
type Source struct {
	pool    *pgxpool.Pool
	channel string
	key     string
	table   string
}

// Option configures a Source.
type Option func(*Source)

// WithTable sets the table queried for values. Defaults to "state".
func WithTable(table string) Option {
	return func(s *Source) {
		s.table = table
	}
}

// New creates a Source for the given notification channel and row key.
// The channel must match the channel named in pg_notify; the key selects
// the row whose value is streamed.
func New(pool *pgxpool.Pool, channel, key string, opts ...Option) *Source {
	s := &Source{
		pool:    pool,
		channel: channel,
		key:     key,
		table:   "state",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch starts listening on the notification channel and returns a channel
// that emits the row's value whenever it changes. The current value is
// emitted immediately so a feed starts from the live state.
func (s *Source) Watch(ctx context.Context) (<-chan []byte, error) {
	// The listening connection is held for the lifetime of the watch.
	// Value loads go through the pool on their own connections.
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: acquire listen connection: %w", err)
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf("LISTEN %s", s.channel)); err != nil {
		conn.Release()
		return nil, fmt.Errorf("postgres: listen on %s: %w", s.channel, err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer conn.Release()

		// A missing row is not an error; the first insert produces the
		// first snapshot.
		if value, err := s.load(ctx); err == nil && value != nil {
			select {
			case out <- value:
			case <-ctx.Done():
				return
			}
		}

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}

			// The trigger posts the changed row's key as the payload.
			if notification.Payload != s.key {
				continue
			}

			value, err := s.load(ctx)
			if err != nil || value == nil {
				continue
			}

			select {
			case out <- value:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// load fetches the row's current value.
func (s *Source) load(ctx context.Context) ([]byte, error) {
	var value []byte
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", s.table)
	if err := s.pool.QueryRow(ctx, query, s.key).Scan(&value); err != nil {
		return nil, err
	}
	return value, nil
}
