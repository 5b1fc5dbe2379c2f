package gesture

import (
	"fmt"
	"math"
)

// Outcome is what a completed gesture asks for.
type Outcome int

const (
	SnapClosed Outcome = iota
	SnapOpen
	Revert
	TapToggle
)

func (o Outcome) String() string {
	switch o {
	case SnapClosed:
		return "snap-closed"
	case SnapOpen:
		return "snap-open"
	case Revert:
		return "revert"
	case TapToggle:
		return "tap-toggle"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Distances from the release point to each snap candidate.
type Distances struct {
	Closed float64
	Open   float64
	Revert float64
}

// Measure computes the snap distances for a drag that started at start and
// was released at final.
func Measure(start, final float64) Distances {
	return Distances{
		Closed: final,
		Open:   1 - final,
		Revert: math.Abs(start - final),
	}
}

// Nearest picks the smallest distance. Ties go to closed, then open.
func (d Distances) Nearest() Outcome {
	nearest := math.Min(d.Closed, math.Min(d.Open, d.Revert))
	switch nearest {
	case d.Closed:
		return SnapClosed
	case d.Open:
		return SnapOpen
	default:
		return Revert
	}
}

// Snap classifies a drag released after moving dy from startProgress.
func Snap(startProgress, dy, dragScale float64) (Outcome, float64) {
	start := Clamp01(startProgress)
	final := Progress(start, dy, dragScale)
	return Measure(start, final).Nearest(), final
}

// Target is the progress a committed outcome settles at. Revert returns to
// start; TapToggle goes to the opposite of start rounded to open or closed.
// A door at exactly 0.5 counts as closed, so a tap opens it. This matches
// the primary button and the ajar default.
func Target(o Outcome, start float64) float64 {
	switch o {
	case SnapClosed:
		return 0
	case SnapOpen:
		return 1
	case TapToggle:
		if Clamp01(start) > 0.5 {
			return 0
		}
		return 1
	default:
		return Clamp01(start)
	}
}
