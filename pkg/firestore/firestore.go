// Package firestore provides a ripple.Source that streams a Firestore
// document through realtime snapshot listeners.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// Source watches a Firestore document and emits one of its fields as a
// snapshot on every change. The field must hold raw bytes or a string.
type Source struct {
	client     *firestore.Client
	collection string
	document   string
	field      string
}

// Option configures a Source.
type Option func(*Source)

// WithField sets the document field holding the snapshot bytes.
// Defaults to "data".
func WithField(field string) Option {
	return func(s *Source) {
		s.field = field
	}
}

// New creates a Source for the given document.
func New(client *firestore.Client, collection, document string, opts ...Option) *Source {
	s := &Source{
		client:     client,
		collection: collection,
		document:   document,
		field:      "data",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch attaches a realtime listener to the document and returns a channel
// that emits the field's value whenever the document changes. The current
// value is emitted immediately so a feed starts from the live state.
func (s *Source) Watch(ctx context.Context) (<-chan []byte, error) {
	docRef := s.client.Collection(s.collection).Doc(s.document)

	out := make(chan []byte)

	go func() {
		defer close(out)

		snapshots := docRef.Snapshots(ctx)
		defer snapshots.Stop()

		for {
			snap, err := snapshots.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}

			// A deleted document keeps the last snapshot in place.
			if !snap.Exists() {
				continue
			}

			value := asBytes(snap.Data()[s.field])
			if value == nil {
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

// asBytes coerces a document field value to raw bytes. Values of any
// other type yield nil.
func asBytes(v any) []byte {
	switch t := v.(type) {
	case []byte:
		return t
	case string:
		return []byte(t)
	}
	return nil
}

// CreateDocument writes a document in the layout the default Source
// configuration reads: raw bytes under the "data" field.
func CreateDocument(ctx context.Context, client *firestore.Client, collection, document string, data []byte) error {
	_, err := client.Collection(collection).Doc(document).Set(ctx, map[string]interface{}{
		"data": data,
	})
	if err != nil {
		return fmt.Errorf("firestore: create document: %w", err)
	}
	return nil
}

// UpdateDocument replaces the "data" field of an existing document.
func UpdateDocument(ctx context.Context, client *firestore.Client, collection, document string, data []byte) error {
	_, err := client.Collection(collection).Doc(document).Update(ctx, []firestore.Update{
		{Path: "data", Value: data},
	})
	if err != nil {
		return fmt.Errorf("firestore: update document: %w", err)
	}
	return nil
}
