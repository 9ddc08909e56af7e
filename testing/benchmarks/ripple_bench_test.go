package benchmarks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/exoRift/ripple"
)

type benchSnapshot struct {
	Value int    `yaml:"value" json:"value"`
	Name  string `yaml:"name" json:"name"`
}

// Validate implements the ripple.Validator interface.
func (s benchSnapshot) Validate() error {
	if s.Value < 0 {
		return fmt.Errorf("value must be >= 0, got %d", s.Value)
	}
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func BenchmarkFeed_StepSingle(b *testing.B) {
	ch := make(chan []byte, b.N+1)
	ch <- []byte(`{"value": 0, "name": "initial"}`)
	for i := 1; i <= b.N; i++ {
		ch <- []byte(fmt.Sprintf(`{"value": %d, "name": "test"}`, i))
	}

	feed := ripple.NewFeed(
		ripple.NewSyncChannelSource(ch),
		func(_ context.Context, _, _ benchSnapshot) error { return nil },
	).SyncMode()

	ctx := context.Background()
	if err := feed.Run(ctx); err != nil {
		b.Fatalf("Run() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		feed.Step(ctx)
	}
}

func BenchmarkFeed_FullPipeline(b *testing.B) {
	ch := make(chan []byte, b.N+1)
	ch <- []byte(`{"value": 0, "name": "initial"}`)
	for i := 1; i <= b.N; i++ {
		ch <- []byte(fmt.Sprintf(`{"value": %d, "name": "test"}`, i))
	}

	var lastApplied int

	feed := ripple.NewFeed(
		ripple.NewSyncChannelSource(ch),
		func(_ context.Context, _, curr benchSnapshot) error {
			lastApplied = curr.Value
			return nil
		},
	).SyncMode()

	ctx := context.Background()
	if err := feed.Run(ctx); err != nil {
		b.Fatalf("Run() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		feed.Step(ctx)
	}

	// Prevent compiler optimization
	if lastApplied < 0 {
		b.Fatal("unexpected")
	}
}

func BenchmarkFeed_FailureRecovery(b *testing.B) {
	ch := make(chan []byte, b.N*2+1)
	ch <- []byte(`{"value": 1, "name": "valid"}`) // Initial valid

	// Alternate invalid/valid
	for i := 0; i < b.N; i++ {
		ch <- []byte(`{"value": -1, "name": "invalid"}`) // Invalid (value < 0)
		ch <- []byte(`{"value": 1, "name": "valid"}`)    // Valid
	}

	feed := ripple.NewFeed(
		ripple.NewSyncChannelSource(ch),
		func(_ context.Context, _, _ benchSnapshot) error { return nil },
	).SyncMode()

	ctx := context.Background()
	if err := feed.Run(ctx); err != nil {
		b.Fatalf("Run() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		feed.Step(ctx) // Invalid -> rejected, previous retained
		feed.Step(ctx) // Valid -> applied
	}
}

func BenchmarkChannelSource_Forwarding(b *testing.B) {
	source := make(chan []byte, b.N)
	for i := 0; i < b.N; i++ {
		source <- []byte(fmt.Sprintf("value: %d", i))
	}

	src := ripple.NewChannelSource(source)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := src.Watch(ctx)
	if err != nil {
		b.Fatalf("Watch() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		<-out
	}
}

func BenchmarkMap_Set(b *testing.B) {
	signal := ripple.NewSignal()
	signal.Subscribe(func() {})
	m := ripple.NewMap(map[int]string{}, signal)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Set(i%1024, "value")
	}
}

func BenchmarkList_Push(b *testing.B) {
	signal := ripple.NewSignal()
	signal.Subscribe(func() {})
	l := ripple.NewList([]int{}, signal)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Push(i)
	}
}
