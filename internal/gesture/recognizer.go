package gesture

import (
	"math"
	"time"
)

// Session is one press-move-release sequence.
type Session struct {
	StartX, StartY float64
	StartProgress  float64
	StartedAt      time.Time
	MaxExcursion   float64 // Largest distance from the press point so far
}

// Begin starts a session at a press.
func Begin(x, y, progress float64, at time.Time) Session {
	return Session{
		StartX:        x,
		StartY:        y,
		StartProgress: Clamp01(progress),
		StartedAt:     at,
	}
}

// Move records a pointer position and returns the upward displacement.
func (s *Session) Move(x, y float64) float64 {
	if d := math.Hypot(x-s.StartX, y-s.StartY); d > s.MaxExcursion {
		s.MaxExcursion = d
	}
	return s.Displacement(y)
}

// Displacement is how far the pointer moved up from the press point.
// Screen y grows downward, so moving up opens the door.
func (s Session) Displacement(y float64) float64 {
	return s.StartY - y
}

// Progress is the drag position for pointer y.
func (s Session) Progress(y float64, p Params) float64 {
	return Progress(s.StartProgress, s.Displacement(y), p.DragScale)
}

// Release describes the end of a session.
type Release struct {
	Session Session
	X, Y    float64
	At      time.Time
}

// Recognizer decides whether a release is its gesture.
type Recognizer interface {
	Recognize(r Release, p Params) (Outcome, bool)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(r Release, p Params) (Outcome, bool)

func (f RecognizerFunc) Recognize(r Release, p Params) (Outcome, bool) {
	return f(r, p)
}

func tapLike(r Release, p Params) bool {
	return r.Session.MaxExcursion <= p.TapMaxDistance &&
		r.At.Sub(r.Session.StartedAt) <= p.TapMaxDuration
}

// Drag recognizes any release that is not tap-like and snaps it.
var Drag Recognizer = RecognizerFunc(func(r Release, p Params) (Outcome, bool) {
	if tapLike(r, p) {
		return 0, false
	}
	outcome, _ := Snap(r.Session.StartProgress, r.Session.Displacement(r.Y), p.DragScale)
	return outcome, true
})

// Tap recognizes a short press that barely moved.
var Tap Recognizer = RecognizerFunc(func(r Release, p Params) (Outcome, bool) {
	if !tapLike(r, p) {
		return 0, false
	}
	return TapToggle, true
})

// Exclusive tries first and only consults second when first fails.
func Exclusive(first, second Recognizer) Recognizer {
	return RecognizerFunc(func(r Release, p Params) (Outcome, bool) {
		if o, ok := first.Recognize(r, p); ok {
			return o, true
		}
		return second.Recognize(r, p)
	})
}

// Default is the drag-over-tap combination used by the door view.
var Default = Exclusive(Drag, Tap)

// Result is a classified release.
type Result struct {
	Outcome Outcome
	Final   float64 // Drag position at release
	Target  float64 // Where progress settles
}

// Classify interprets a release. Exactly one outcome results: when no
// recognizer claims the release it reverts.
func Classify(r Release, p Params) Result {
	r.Session.Move(r.X, r.Y)
	final := r.Session.Progress(r.Y, p)

	outcome, ok := Default.Recognize(r, p)
	if !ok {
		outcome = Revert
	}
	if outcome == TapToggle {
		// A tap does not move the door under the pointer
		final = r.Session.StartProgress
	}
	return Result{
		Outcome: outcome,
		Final:   final,
		Target:  Target(outcome, r.Session.StartProgress),
	}
}
