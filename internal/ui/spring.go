package ui

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
)

// Frame rate of the door animation
const FPS = 60

// Spring constants for a unit mass with stiffness 250 and friction 26:
// angular frequency sqrt(k/m), damping ratio c / (2*sqrt(k*m)).
var (
	springFrequency = math.Sqrt(250)
	springDamping   = 26 / (2 * math.Sqrt(250))
)

// settleEpsilon is how close position and velocity must be to rest
const settleEpsilon = 1e-3

// FrameInterval is the time between animation frames
var FrameInterval = time.Second / FPS

// Animator eases the displayed door position toward a target.
type Animator struct {
	spring   harmonica.Spring
	Position float64
	Velocity float64
	Target   float64
}

// NewAnimator creates an animator resting at position.
func NewAnimator(position float64) Animator {
	return Animator{
		spring:   harmonica.NewSpring(harmonica.FPS(FPS), springFrequency, springDamping),
		Position: position,
		Target:   position,
	}
}

// Jump moves to v immediately, e.g. while the door is being dragged.
func (a *Animator) Jump(v float64) {
	a.Position, a.Target, a.Velocity = v, v, 0
}

// Step advances one frame and reports whether the animator is at rest.
func (a *Animator) Step() bool {
	if a.Settled() {
		a.Position, a.Velocity = a.Target, 0
		return true
	}
	a.Position, a.Velocity = a.spring.Update(a.Position, a.Velocity, a.Target)
	if a.Settled() {
		a.Position, a.Velocity = a.Target, 0
		return true
	}
	return false
}

// Settled reports whether the animator is at rest on its target.
func (a *Animator) Settled() bool {
	return math.Abs(a.Position-a.Target) < settleEpsilon && math.Abs(a.Velocity) < settleEpsilon
}

// Display returns the position clamped for rendering; the spring may
// overshoot slightly.
func (a *Animator) Display() float64 {
	return math.Max(0, math.Min(1, a.Position))
}
