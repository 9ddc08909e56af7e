package ripple

import (
	"sync/atomic"
	"testing"
	"time"
)

// recordingMetrics counts provider callbacks for assertions in query and
// feed tests.
type recordingMetrics struct {
	stateChanges atomic.Int32
	successes    atomic.Int32
	failures     atomic.Int32
	received     atomic.Int32

	lastStage atomic.Pointer[string]
}

func (m *recordingMetrics) OnStateChange(_, _ State) { m.stateChanges.Add(1) }

func (m *recordingMetrics) OnProcessSuccess(_ time.Duration) { m.successes.Add(1) }

func (m *recordingMetrics) OnProcessFailure(stage string, _ time.Duration) {
	m.lastStage.Store(&stage)
	m.failures.Add(1)
}

func (m *recordingMetrics) OnChangeReceived() { m.received.Add(1) }

func (m *recordingMetrics) failureStage() string {
	if p := m.lastStage.Load(); p != nil {
		return *p
	}
	return ""
}

func TestNoOpMetricsProvider_DoesNotPanic(_ *testing.T) {
	var m NoOpMetricsProvider

	// These should not panic
	m.OnStateChange(StateWaiting, StateResolved)
	m.OnProcessSuccess(100 * time.Millisecond)
	m.OnProcessFailure("decode", 50*time.Millisecond)
	m.OnChangeReceived()
}

func TestMetricsProvider_Implementations(_ *testing.T) {
	var _ MetricsProvider = NoOpMetricsProvider{}
	var _ MetricsProvider = &recordingMetrics{}
}
