package bridge

// State represents the lifecycle state of a bridge session.
type State int

const (
	// StateStopped indicates no bridge server is running.
	StateStopped State = iota

	// StateStarting indicates the server has been spawned but has not yet
	// passed the readiness check.
	StateStarting

	// StateRunning indicates the server is up and accepting connections
	// (or survived the full readiness window).
	StateRunning

	// StateStopping indicates a stop has been requested and the session is
	// waiting for the child to exit.
	StateStopping

	// StateCrashed indicates the child exited without a stop being
	// requested. Terminal until a new Start.
	StateCrashed
)

// String returns a human-readable string for the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// terminal reports whether the state admits no further transitions for
// this session.
func (s State) terminal() bool {
	return s == StateStopped || s == StateCrashed
}
