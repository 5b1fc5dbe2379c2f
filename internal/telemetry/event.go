package telemetry

import (
	"encoding/json"

	"github.com/muurk/garagectl/internal/deviceerr"
)

// Setpoint is the door's resting target as reported by the controller.
type Setpoint string

const (
	SetpointOpen   Setpoint = "open"
	SetpointClosed Setpoint = "closed"
	SetpointAjar   Setpoint = "ajar"
)

// Known reports whether s is one of the three setpoints.
func (s Setpoint) Known() bool {
	switch s {
	case SetpointOpen, SetpointClosed, SetpointAjar:
		return true
	}
	return false
}

// StatusEvent is one telemetry message. Each event supersedes the previous.
type StatusEvent struct {
	Status   string   `json:"status"`             // Free-form state, e.g. "moving_up"
	Setpoint Setpoint `json:"setpoint"`           // open, closed or ajar
	Position *float64 `json:"position,omitempty"` // 0 closed .. 1 open, absent when unknown
}

// PositionOr returns the reported position, or def when none was sent.
func (e StatusEvent) PositionOr(def float64) float64 {
	if e.Position == nil {
		return def
	}
	return *e.Position
}

// Decode parses a telemetry payload. Failures are DecodeErrors.
func Decode(data []byte) (StatusEvent, error) {
	var ev StatusEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return StatusEvent{}, deviceerr.NewDecodeError(err)
	}
	return ev, nil
}

// Encode serializes an event the way the controller sends it.
func Encode(ev StatusEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// Float returns a pointer to v, for building events.
func Float(v float64) *float64 {
	return &v
}
