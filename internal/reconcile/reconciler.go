package reconcile

import (
	"fmt"
	"sync"
	"time"

	"github.com/muurk/garagectl/internal/command"
	"github.com/muurk/garagectl/internal/gesture"
	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/telemetry"
	"go.uber.org/zap"
)

// Source records who wrote the current value.
type Source int

const (
	SourceRemote Source = iota
	SourceGesture
	SourceCommand
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceGesture:
		return "gesture"
	case SourceCommand:
		return "command-optimistic"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Phase is the reconciler state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseGesturing
	PhaseSettling
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseGesturing:
		return "gesturing"
	case PhaseSettling:
		return "settling"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Sender dispatches door commands without blocking.
type Sender interface {
	Send(command.Command)
}

// Snapshot is a consistent view of the reconciler.
type Snapshot struct {
	Value  float64 // setpointProgress, always in [0, 1]
	Source Source
	Phase  Phase
	// Token identifies the current settle target. Arrived must echo it.
	Token uint64
	// Session is the active gesture, nil outside PhaseGesturing
	Session *gesture.Session
}

// Listener receives a snapshot after every change.
type Listener func(Snapshot)

// Reconciler merges telemetry, optimistic commands and drag gestures into
// a single setpoint progress. All methods are safe for concurrent use.
type Reconciler struct {
	sender Sender
	now    func() time.Time

	mu      sync.Mutex
	value   float64
	source  Source
	phase   Phase
	token   uint64
	session *gesture.Session
	params  gesture.Params

	listeners map[int]Listener
	nextID    int
	notifyMu  sync.Mutex
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock replaces time.Now for tap timing.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithInitial sets the starting progress.
func WithInitial(progress float64) Option {
	return func(r *Reconciler) { r.value = gesture.Clamp01(progress) }
}

// New creates an idle reconciler at progress 0.
func New(sender Sender, params gesture.Params, opts ...Option) *Reconciler {
	r := &Reconciler{
		sender:    sender,
		now:       time.Now,
		params:    params,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetParams replaces the gesture thresholds, e.g. after a resize. An
// active session keeps its start but uses the new scale.
func (r *Reconciler) SetParams(p gesture.Params) {
	r.mu.Lock()
	r.params = p
	r.mu.Unlock()
}

// Params returns the current gesture thresholds.
func (r *Reconciler) Params() gesture.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// Snapshot returns the current state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Value returns the current setpoint progress.
func (r *Reconciler) Value() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Subscribe registers fn for change notifications.
func (r *Reconciler) Subscribe(fn Listener) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// ApplyStatus moves the target to the reported setpoint. It is ignored
// during a gesture and for unknown setpoints, and reports whether it
// applied.
func (r *Reconciler) ApplyStatus(ev telemetry.StatusEvent) bool {
	var target float64
	switch ev.Setpoint {
	case telemetry.SetpointOpen:
		target = 1
	case telemetry.SetpointClosed:
		target = 0
	case telemetry.SetpointAjar:
		target = ev.PositionOr(0.5)
	default:
		logging.Debug("Ignoring status with unknown setpoint", zap.String("setpoint", string(ev.Setpoint)))
		return false
	}

	return r.mutate(func() bool {
		if r.phase == PhaseGesturing {
			logging.Debug("Ignoring status during gesture", zap.String("setpoint", string(ev.Setpoint)))
			return false
		}
		r.settleLocked(target, SourceRemote)
		return true
	})
}

// Command sets the optimistic target for cmd and dispatches it. It is
// ignored during a gesture. Toggle targets the opposite of the rounded
// current value.
func (r *Reconciler) Command(cmd command.Command) bool {
	var sent bool
	r.mutate(func() bool {
		if r.phase == PhaseGesturing {
			return false
		}
		var target float64
		switch cmd {
		case command.Open:
			target = 1
		case command.Close:
			target = 0
		case command.Toggle:
			target = gesture.Target(gesture.TapToggle, r.value)
		default:
			return false
		}
		r.settleLocked(target, SourceCommand)
		sent = true
		return true
	})
	if sent {
		r.send(cmd)
	}
	return sent
}

// Primary is the single door button: close when the value is above half,
// otherwise open.
func (r *Reconciler) Primary() command.Command {
	if r.Value() > 0.5 {
		r.Command(command.Close)
		return command.Close
	}
	r.Command(command.Open)
	return command.Open
}

// BeginGesture starts a drag session at the pointer from the current value.
// A pending settle is abandoned.
func (r *Reconciler) BeginGesture(x, y float64) {
	r.mutate(func() bool {
		s := gesture.Begin(x, y, r.value, r.now())
		r.session = &s
		r.phase = PhaseGesturing
		r.token++
		return true
	})
}

// UpdateGesture moves the value with the pointer. Without a session it
// starts one at the pointer.
func (r *Reconciler) UpdateGesture(x, y float64) float64 {
	var value float64
	r.mutate(func() bool {
		if r.session == nil {
			s := gesture.Begin(x, y, r.value, r.now())
			r.session = &s
			r.phase = PhaseGesturing
			r.token++
		}
		r.session.Move(x, y)
		r.value = r.session.Progress(y, r.params)
		r.source = SourceGesture
		value = r.value
		return true
	})
	return value
}

// EndGesture classifies the release, dispatches the resulting command if
// any and settles at its target. Without a session nothing was pressed, so
// it reverts in place.
func (r *Reconciler) EndGesture(x, y float64) gesture.Result {
	var (
		result gesture.Result
		cmd    command.Command
	)
	r.mutate(func() bool {
		if r.session == nil {
			result = gesture.Result{Outcome: gesture.Revert, Final: r.value, Target: r.value}
			return false
		}

		result = gesture.Classify(gesture.Release{
			Session: *r.session,
			X:       x,
			Y:       y,
			At:      r.now(),
		}, r.params)
		r.session = nil
		r.phase = PhaseIdle

		source := SourceCommand
		switch result.Outcome {
		case gesture.SnapClosed:
			cmd = command.Close
		case gesture.SnapOpen:
			cmd = command.Open
		case gesture.TapToggle:
			cmd = command.Toggle
		case gesture.Revert:
			source = SourceGesture
		}
		r.settleLocked(result.Target, source)
		return true
	})

	logging.Debug("Gesture classified",
		zap.String("outcome", result.Outcome.String()),
		zap.Float64("final", result.Final),
		zap.Float64("target", result.Target),
	)
	if cmd != "" {
		r.send(cmd)
	}
	return result
}

// CancelGesture drops the session and restores its starting value.
func (r *Reconciler) CancelGesture() {
	r.mutate(func() bool {
		if r.session == nil {
			return false
		}
		r.value = r.session.StartProgress
		r.source = SourceGesture
		r.session = nil
		r.phase = PhaseIdle
		r.token++
		return true
	})
}

// Tap handles a discrete tap outside the drag stream: always toggle.
func (r *Reconciler) Tap() {
	r.Command(command.Toggle)
}

// Arrived ends settling once the renderer has reached the target for token.
// Stale tokens are ignored.
func (r *Reconciler) Arrived(token uint64) bool {
	return r.mutate(func() bool {
		if r.phase != PhaseSettling || token != r.token {
			return false
		}
		r.phase = PhaseIdle
		return true
	})
}

// settleLocked sets a new target. The value jumps to the target; the
// renderer animates toward it and reports arrival. Caller holds mu.
func (r *Reconciler) settleLocked(target float64, source Source) {
	target = gesture.Clamp01(target)
	r.source = source
	r.token++
	if target == r.value {
		r.phase = PhaseIdle
		return
	}
	r.value = target
	r.phase = PhaseSettling
}

// mutate runs fn under the lock and notifies listeners if it reports a
// change.
func (r *Reconciler) mutate(fn func() bool) bool {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	changed := fn()
	if !changed {
		r.mu.Unlock()
		return false
	}
	snap := r.snapshotLocked()
	listeners := make([]Listener, 0, len(r.listeners))
	for id := 0; id < r.nextID; id++ {
		if l, ok := r.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	r.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return true
}

func (r *Reconciler) send(cmd command.Command) {
	if r.sender == nil {
		logging.Warn("No command sender configured", zap.String("command", string(cmd)))
		return
	}
	r.sender.Send(cmd)
}

func (r *Reconciler) snapshotLocked() Snapshot {
	snap := Snapshot{
		Value:  r.value,
		Source: r.source,
		Phase:  r.phase,
		Token:  r.token,
	}
	if r.session != nil {
		s := *r.session
		snap.Session = &s
	}
	return snap
}
