package server

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/telemetry"
	"go.uber.org/zap"
)

// DoorState is the controller's reported state, sent as "status".
type DoorState string

const (
	StateUnknown    DoorState = "unknown"
	StateClosed     DoorState = "closed"
	StateOpen       DoorState = "open"
	StateAjar       DoorState = "ajar"
	StateMovingUp   DoorState = "moving_up"
	StateMovingDown DoorState = "moving_down"
)

// Door simulates a door on a single-button opener with limit switches at
// both ends. Position runs from 0 (closed) to 1 (open).
type Door struct {
	mu        sync.Mutex
	speed     float64 // Travel per second
	position  float64
	velocity  float64
	lastDir   float64
	state     DoorState
	last      telemetry.StatusEvent
	subs      map[int]chan telemetry.StatusEvent
	nextSubID int
}

// NewDoor creates a closed door that crosses its full travel in travel.
// The state stays unknown until the first Step reads the switches.
func NewDoor(travel time.Duration) *Door {
	if travel <= 0 {
		travel = DefaultTravelTime
	}
	d := &Door{
		speed: 1 / travel.Seconds(),
		state: StateUnknown,
		subs:  make(map[int]chan telemetry.StatusEvent),
	}
	d.last = d.eventLocked()
	return d
}

// Status returns the current telemetry event.
func (d *Door) Status() telemetry.StatusEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// State returns the current door state.
func (d *Door) State() DoorState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Position returns the current position.
func (d *Door) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

// Open drives the door up unless it is already fully open.
func (d *Door) Open() {
	d.drive(func() {
		if d.position < 1 || d.velocity < 0 {
			d.start(d.speed)
		}
	})
}

// Close drives the door down unless it is already fully closed.
func (d *Door) Close() {
	d.drive(func() {
		if d.position > 0 || d.velocity > 0 {
			d.start(-d.speed)
		}
	})
}

// Toggle pulses the opener button: a moving door stops, a stationary door
// moves away from the limit it rests on, or reverses its last direction.
func (d *Door) Toggle() {
	d.drive(func() {
		switch {
		case d.velocity != 0:
			d.velocity = 0
		case d.position <= 0:
			d.start(d.speed)
		case d.position >= 1:
			d.start(-d.speed)
		case d.lastDir > 0:
			d.start(-d.speed)
		default:
			d.start(d.speed)
		}
	})
}

func (d *Door) start(v float64) {
	d.velocity = v
	d.lastDir = v
}

func (d *Door) drive(fn func()) {
	d.mu.Lock()
	fn()
	d.updateLocked()
	d.mu.Unlock()
}

// Step advances the simulation by dt.
func (d *Door) Step(dt time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.position += d.velocity * dt.Seconds()
	if d.position <= 0 {
		d.position = 0
		if d.velocity < 0 {
			d.velocity = 0
		}
	}
	if d.position >= 1 {
		d.position = 1
		if d.velocity > 0 {
			d.velocity = 0
		}
	}
	d.updateLocked()
}

// Run steps the door every tick until ctx is done.
func (d *Door) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.Step(now.Sub(last))
			last = now
		}
	}
}

func (d *Door) updateLocked() {
	prev := d.state
	switch {
	case d.velocity > 0:
		d.state = StateMovingUp
	case d.velocity < 0:
		d.state = StateMovingDown
	case d.position <= 0:
		d.state = StateClosed
	case d.position >= 1:
		d.state = StateOpen
	default:
		d.state = StateAjar
	}
	if d.state != prev {
		logging.Info("Door state changed",
			zap.String("from", string(prev)),
			zap.String("to", string(d.state)),
			zap.Float64("position", d.position),
		)
	}

	ev := d.eventLocked()
	if sameEvent(ev, d.last) {
		return
	}
	d.last = ev
	for _, ch := range d.subs {
		offer(ch, ev)
	}
}

func (d *Door) eventLocked() telemetry.StatusEvent {
	ev := telemetry.StatusEvent{Status: string(d.state)}
	switch d.state {
	case StateUnknown:
		ev.Setpoint = telemetry.Setpoint(StateUnknown)
		return ev
	case StateClosed, StateMovingDown:
		ev.Setpoint = telemetry.SetpointClosed
	case StateOpen, StateMovingUp:
		ev.Setpoint = telemetry.SetpointOpen
	default:
		ev.Setpoint = telemetry.SetpointAjar
	}
	// Millesimal resolution keeps tick noise off the wire
	ev.Position = telemetry.Float(math.Round(d.position*1000) / 1000)
	return ev
}

func sameEvent(a, b telemetry.StatusEvent) bool {
	if a.Status != b.Status || a.Setpoint != b.Setpoint {
		return false
	}
	if a.Position == nil || b.Position == nil {
		return a.Position == b.Position
	}
	return *a.Position == *b.Position
}

// offer delivers ev, replacing an undelivered older event.
func offer(ch chan telemetry.StatusEvent, ev telemetry.StatusEvent) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

// Subscribe returns a channel carrying every status change. Slow readers
// only see the newest event. The cancel func must be called.
func (d *Door) Subscribe() (<-chan telemetry.StatusEvent, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSubID
	d.nextSubID++
	ch := make(chan telemetry.StatusEvent, 1)
	d.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}
