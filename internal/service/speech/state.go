package speech

import "fmt"

// State represents the lifecycle state of the speech session.
type State int

const (
	// StateIdle - No session is active; Start is allowed.
	StateIdle State = iota
	// StateRecording - A recognizer session is delivering events.
	StateRecording
	// StateUnsupported - No recognition capability exists.
	// This is a terminal state.
	StateUnsupported
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRecording:
		return "RECORDING"
	case StateUnsupported:
		return "UNSUPPORTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateUnsupported
}
