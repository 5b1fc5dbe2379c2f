package gesture

import (
	"math"
	"time"
)

const (
	// DefaultDragFraction is the share of screen height that spans full travel
	DefaultDragFraction = 0.3

	// DefaultTapMaxDistance is the largest pointer excursion still counted as a tap
	DefaultTapMaxDistance = 10.0

	// DefaultTapMaxDuration is the longest press still counted as a tap
	DefaultTapMaxDuration = 250 * time.Millisecond
)

// Params holds the thresholds used to interpret pointer input. Distances
// are in the same unit as the pointer coordinates (pixels, terminal cells).
type Params struct {
	DragScale      float64       // Displacement that moves progress by 1.0
	TapMaxDistance float64       // Max excursion for a tap
	TapMaxDuration time.Duration // Max press duration for a tap
}

// ParamsForHeight derives params for a screen of the given height. A
// fraction outside (0, 1] falls back to DefaultDragFraction.
func ParamsForHeight(height, fraction float64) Params {
	if fraction <= 0 || fraction > 1 || math.IsNaN(fraction) {
		fraction = DefaultDragFraction
	}
	return Params{
		DragScale:      height * fraction,
		TapMaxDistance: DefaultTapMaxDistance,
		TapMaxDuration: DefaultTapMaxDuration,
	}
}

// WithTap returns p with the tap thresholds replaced. Zero values keep the
// current thresholds.
func (p Params) WithTap(distance float64, duration time.Duration) Params {
	if distance > 0 {
		p.TapMaxDistance = distance
	}
	if duration > 0 {
		p.TapMaxDuration = duration
	}
	return p
}

// Clamp01 limits v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Progress is the drag position: start moved by dy/scale, clamped. A
// non-positive scale leaves start unchanged.
func Progress(start, dy, scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) {
		return Clamp01(start)
	}
	return Clamp01(start + dy/scale)
}
