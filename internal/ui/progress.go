package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

// Gauge is a labelled progress bar showing a door fraction.
type Gauge struct {
	Label string
	bar   progress.Model
}

// NewGauge creates a gauge sized for width.
func NewGauge(label string, width int, colorA, colorB string) *Gauge {
	g := &Gauge{
		Label: label,
		bar: progress.New(
			progress.WithGradient(colorA, colorB),
			progress.WithoutPercentage(),
		),
	}
	return g.SetWidth(width)
}

// SetWidth resizes the bar, leaving room for the label and percentage.
func (g *Gauge) SetWidth(width int) *Gauge {
	barWidth := width - 20
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 60 {
		barWidth = 60
	}
	g.bar.Width = barWidth
	return g
}

// Width returns the bar width in cells.
func (g *Gauge) Width() int {
	return g.bar.Width
}

// Render draws the gauge at fraction, which is clamped to [0, 1].
func (g *Gauge) Render(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return GaugeLabelStyle.Render(g.Label) + g.bar.ViewAs(fraction) +
		ParamValueStyle.Render(fmt.Sprintf(" %3.0f%%", fraction*100))
}
