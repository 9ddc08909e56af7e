// Package kubernetes provides a ripple.Source that streams a key from a
// ConfigMap or Secret through the watch API.
package kubernetes

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
)

// ResourceType selects the kind of resource to watch.
type ResourceType int

const (
	// ConfigMap watches a ConfigMap resource.
	ConfigMap ResourceType = iota
	// Secret watches a Secret resource.
	Secret
)

// Source watches one data key of a ConfigMap or Secret and emits its
// value as a snapshot on every update. Dropped watch connections are
// re-established from a fresh read, which re-emits the current value.
type Source struct {
	client       kubernetes.Interface
	namespace    string
	name         string
	key          string
	resourceType ResourceType
}

// Option configures a Source.
type Option func(*Source)

// WithResourceType sets the resource kind to watch. Defaults to ConfigMap.
func WithResourceType(rt ResourceType) Option {
	return func(s *Source) {
		s.resourceType = rt
	}
}

// New creates a Source for one data key of the named resource.
func New(client kubernetes.Interface, namespace, name, key string, opts ...Option) *Source {
	s := &Source{
		client:       client,
		namespace:    namespace,
		name:         name,
		key:          key,
		resourceType: ConfigMap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch begins observing the resource and returns a channel that emits the
// key's value whenever the resource changes. The current value is emitted
// immediately so a feed starts from the live state.
func (s *Source) Watch(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)

	go func() {
		defer close(out)

		for {
			if err := s.watchResource(ctx, out); err != nil {
				if ctx.Err() != nil {
					return
				}
				// Reconnect on error
				continue
			}
			return
		}
	}()

	return out, nil
}

// watchResource reads the current value, emits it, and forwards updates
// until the watch connection drops.
func (s *Source) watchResource(ctx context.Context, out chan<- []byte) error {
	value, resourceVersion, err := s.read(ctx)
	if err != nil {
		return err
	}

	if value != nil {
		select {
		case out <- value:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	opts := metav1.ListOptions{
		FieldSelector:   fmt.Sprintf("metadata.name=%s", s.name),
		ResourceVersion: resourceVersion,
		Watch:           true,
	}

	var watcher watch.Interface
	if s.resourceType == ConfigMap {
		watcher, err = s.client.CoreV1().ConfigMaps(s.namespace).Watch(ctx, opts)
	} else {
		watcher, err = s.client.CoreV1().Secrets(s.namespace).Watch(ctx, opts)
	}
	if err != nil {
		return fmt.Errorf("kubernetes: start watch: %w", err)
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.ResultChan():
			if !ok {
				return fmt.Errorf("kubernetes: watch channel closed")
			}

			if event.Type == watch.Error {
				return fmt.Errorf("kubernetes: watch error")
			}

			// A deleted resource keeps the last snapshot in place.
			if event.Type == watch.Deleted {
				continue
			}

			if value := s.extract(event.Object); value != nil {
				select {
				case out <- value:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// read fetches the key's current value and the resource version to resume
// watching from.
func (s *Source) read(ctx context.Context) ([]byte, string, error) {
	if s.resourceType == ConfigMap {
		cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
		if err != nil {
			return nil, "", err
		}
		return []byte(cm.Data[s.key]), cm.ResourceVersion, nil
	}

	secret, err := s.client.CoreV1().Secrets(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		return nil, "", err
	}
	return secret.Data[s.key], secret.ResourceVersion, nil
}

// extract pulls the key's value out of a watch event object. Objects of
// the wrong kind yield nil.
func (s *Source) extract(obj any) []byte {
	if s.resourceType == ConfigMap {
		if cm, ok := obj.(*corev1.ConfigMap); ok {
			return []byte(cm.Data[s.key])
		}
	} else {
		if secret, ok := obj.(*corev1.Secret); ok {
			return secret.Data[s.key]
		}
	}
	return nil
}
