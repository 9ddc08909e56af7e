package ripple

import (
	"context"
	"testing"
	"time"
)

func TestChannelSource_ForwardsValues(t *testing.T) {
	in := make(chan []byte, 3)
	in <- []byte("one")
	in <- []byte("two")
	in <- []byte("three")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := NewChannelSource(in).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	for i, want := range []string{"one", "two", "three"} {
		select {
		case v := <-out:
			if string(v) != want {
				t.Errorf("expected %s, got %s", want, string(v))
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timeout waiting for value %d", i)
		}
	}
}

func TestChannelSource_ClosesOnSourceClose(t *testing.T) {
	in := make(chan []byte, 1)
	in <- []byte("value")
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := NewChannelSource(in).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	<-out

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for channel close")
	}
}

func TestChannelSource_ClosesOnContextCancel(t *testing.T) {
	in := make(chan []byte) // unbuffered, will block

	ctx, cancel := context.WithCancel(context.Background())

	out, err := NewChannelSource(in).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for channel close")
	}
}

func TestChannelSource_CancelWhileBlockedOnSend(t *testing.T) {
	in := make(chan []byte)

	ctx, cancel := context.WithCancel(context.Background())

	out, err := NewChannelSource(in).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	go func() {
		in <- []byte("value")
	}()

	// Let the forwarder take the value; it now blocks sending to out.
	time.Sleep(20 * time.Millisecond)

	cancel()

	select {
	case <-out:
		// closed, or the value squeezed through before the cancel
	case <-time.After(100 * time.Millisecond):
		t.Error("channel did not close after context cancel")
	}
}

func TestSyncChannelSource_ReturnsChannelDirectly(t *testing.T) {
	in := make(chan []byte, 1)
	in <- []byte("value")

	out, err := NewSyncChannelSource(in).Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// No goroutine sits between the channels, so the value is already there.
	select {
	case v := <-out:
		if string(v) != "value" {
			t.Errorf("expected value, got %s", string(v))
		}
	default:
		t.Error("expected the buffered value to be immediately available")
	}
}
