package messenger

// State is the lifecycle state of a Messenger.
type State int32

const (
	StateNotStarted State = iota
	StateHandshaking
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateHandshaking:
		return "handshaking"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the worker can no longer run.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}
