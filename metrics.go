package ripple

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key query and feed events.
type MetricsProvider interface {
	// OnStateChange is called when a query transitions between states.
	OnStateChange(from, to State)

	// OnProcessSuccess is called when a cycle or snapshot is successfully
	// processed. Duration is the time taken end to end.
	OnProcessSuccess(duration time.Duration)

	// OnProcessFailure is called when processing fails. Stage indicates
	// where: "operation" for queries; "decode", "validate", "reduce", or
	// "apply" for feeds.
	OnProcessFailure(stage string, duration time.Duration)

	// OnChangeReceived is called when raw data is received from a source.
	OnChangeReceived()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)                   {}
func (NoOpMetricsProvider) OnProcessSuccess(_ time.Duration)           {}
func (NoOpMetricsProvider) OnProcessFailure(_ string, _ time.Duration) {}
func (NoOpMetricsProvider) OnChangeReceived()                          {}
