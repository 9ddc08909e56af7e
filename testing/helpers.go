// Package testing provides test utilities and helpers for ripple containers.
package testing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/exoRift/ripple"
)

// TestSnapshot is a standard snapshot type for testing ripple feeds.
// It implements ripple.Validator with configurable validation behavior.
type TestSnapshot struct {
	Title string `yaml:"title" json:"title"`
	Count int    `yaml:"count" json:"count"`
}

// Validate implements ripple.Validator.
func (s TestSnapshot) Validate() error {
	if s.Title == "" {
		return errors.New("title is required")
	}
	if s.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", s.Count)
	}
	return nil
}

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForState waits until the query reaches the expected state or timeout occurs.
func WaitForState[T any](t *testing.T, q *ripple.Query[T], expected ripple.State, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return q.State() == expected
	})
}

// RequireState fails the test immediately if the query is not in the expected state.
func RequireState[T any](t *testing.T, q *ripple.Query[T], expected ripple.State) {
	t.Helper()
	if got := q.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// RequireResult fails the test if Result() returns false or the value doesn't match.
func RequireResult[T any](t *testing.T, q *ripple.Query[T], check func(T) bool) {
	t.Helper()
	result, ok := q.Result()
	if !ok {
		t.Fatal("expected result to be present, got none")
	}
	if !check(result) {
		t.Fatalf("result check failed: %+v", result)
	}
}

// RequireCurrent fails the test if Current() returns false or the snapshot doesn't match.
func RequireCurrent[T ripple.Validator](t *testing.T, f *ripple.Feed[T], check func(T) bool) {
	t.Helper()
	curr, ok := f.Current()
	if !ok {
		t.Fatal("expected snapshot to be present, got none")
	}
	if !check(curr) {
		t.Fatalf("snapshot check failed: %+v", curr)
	}
}

// NewTestFeed creates a feed with a sync channel source for testing.
// Returns the feed and a channel for sending test data.
func NewTestFeed(t *testing.T, apply func(context.Context, TestSnapshot, TestSnapshot) error) (*ripple.Feed[TestSnapshot], chan<- []byte) {
	t.Helper()
	ch := make(chan []byte, 10)
	f := ripple.NewFeed(
		ripple.NewSyncChannelSource(ch),
		apply,
	).SyncMode()
	return f, ch
}
