package server

import (
	"testing"
	"time"

	"github.com/muurk/garagectl/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoor_StartsUnknownThenClosed(t *testing.T) {
	d := NewDoor(10 * time.Second)
	assert.Equal(t, StateUnknown, d.State())
	assert.Nil(t, d.Status().Position)
	assert.False(t, d.Status().Setpoint.Known())

	d.Step(100 * time.Millisecond)
	assert.Equal(t, StateClosed, d.State())
	ev := d.Status()
	assert.Equal(t, "closed", ev.Status)
	assert.Equal(t, telemetry.SetpointClosed, ev.Setpoint)
	require.NotNil(t, ev.Position)
	assert.Equal(t, 0.0, *ev.Position)
}

func TestDoor_OpenTravelsToLimit(t *testing.T) {
	d := NewDoor(10 * time.Second)
	d.Open()
	assert.Equal(t, StateMovingUp, d.State())
	assert.Equal(t, telemetry.SetpointOpen, d.Status().Setpoint)

	d.Step(5 * time.Second)
	assert.InDelta(t, 0.5, d.Position(), 1e-9)
	assert.Equal(t, StateMovingUp, d.State())

	d.Step(6 * time.Second)
	assert.Equal(t, 1.0, d.Position())
	assert.Equal(t, StateOpen, d.State())

	// Already open
	d.Open()
	assert.Equal(t, StateOpen, d.State())
}

func TestDoor_CloseFromOpen(t *testing.T) {
	d := NewDoor(4 * time.Second)
	d.Open()
	d.Step(4 * time.Second)
	require.Equal(t, StateOpen, d.State())

	d.Close()
	assert.Equal(t, StateMovingDown, d.State())
	assert.Equal(t, telemetry.SetpointClosed, d.Status().Setpoint)
	d.Step(4 * time.Second)
	assert.Equal(t, StateClosed, d.State())
	assert.Equal(t, 0.0, d.Position())
}

func TestDoor_Toggle(t *testing.T) {
	d := NewDoor(10 * time.Second)
	d.Step(0)

	// Closed door moves up
	d.Toggle()
	assert.Equal(t, StateMovingUp, d.State())

	// Moving door stops halfway
	d.Step(3 * time.Second)
	d.Toggle()
	assert.Equal(t, StateAjar, d.State())
	ev := d.Status()
	assert.Equal(t, telemetry.SetpointAjar, ev.Setpoint)
	assert.InDelta(t, 0.3, ev.PositionOr(-1), 1e-9)

	// Stopped door reverses its last direction
	d.Toggle()
	assert.Equal(t, StateMovingDown, d.State())
	d.Step(time.Second)
	d.Toggle()
	d.Toggle()
	assert.Equal(t, StateMovingUp, d.State())

	d.Step(time.Minute)
	assert.Equal(t, StateOpen, d.State())

	// Open door moves down
	d.Toggle()
	assert.Equal(t, StateMovingDown, d.State())
}

func TestDoor_CloseReversesOpening(t *testing.T) {
	d := NewDoor(10 * time.Second)
	d.Open()
	d.Step(2 * time.Second)
	d.Close()
	assert.Equal(t, StateMovingDown, d.State())
	d.Step(3 * time.Second)
	assert.Equal(t, StateClosed, d.State())
}

func TestDoor_SubscribeKeepsNewest(t *testing.T) {
	d := NewDoor(10 * time.Second)
	updates, cancel := d.Subscribe()
	defer cancel()

	d.Step(0)
	d.Open()
	d.Step(time.Second)

	// Buffer holds only the latest change
	ev := <-updates
	assert.Equal(t, "moving_up", ev.Status)
	assert.InDelta(t, 0.1, ev.PositionOr(-1), 1e-9)

	select {
	case extra := <-updates:
		t.Fatalf("unexpected extra event %+v", extra)
	default:
	}

	// No change, no event
	d.Step(0)
	select {
	case extra := <-updates:
		t.Fatalf("unexpected event for unchanged status %+v", extra)
	default:
	}

	cancel()
	cancel()
	d.Step(time.Second)
	select {
	case extra := <-updates:
		t.Fatalf("event after cancel %+v", extra)
	default:
	}
}
