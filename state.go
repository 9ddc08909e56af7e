package ripple

// State represents the current phase of a Query's load cycle.
type State int32

const (
	// StateWaiting indicates a cycle is in flight and no completion has
	// been committed for it yet.
	StateWaiting State = iota

	// StateResolved indicates the most recent cycle committed a result.
	StateResolved

	// StateRejected indicates the most recent cycle committed an error.
	// The error is available through Err and the history through
	// ErrorHistory.
	StateRejected
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}
