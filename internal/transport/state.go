package transport

// State represents the persistent channel lifecycle. Transitions happen only
// inside the Manager; connection side effects occur nowhere else.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Mode reports how updates currently arrive
type Mode int

const (
	ModePush Mode = iota
	ModePolling
)

func (m Mode) String() string {
	if m == ModePolling {
		return "polling"
	}
	return "push"
}
