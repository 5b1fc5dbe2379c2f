package telemetry

import (
	"fmt"

	"github.com/muurk/garagectl/internal/deviceerr"
)

// State is the connection state of a Channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a consistent view of a Channel.
type Snapshot struct {
	State  State
	Err    error        // Last error, nil when cleared
	Status *StatusEvent // Last decoded event, nil before the first one
}

// IsConnected reports whether the stream is open.
func (s Snapshot) IsConnected() bool {
	return s.State == StateConnected
}

// ErrorMessage returns the short text of Err, or "" when there is none.
func (s Snapshot) ErrorMessage() string {
	return deviceerr.Message(s.Err)
}
