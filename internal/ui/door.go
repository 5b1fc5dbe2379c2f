package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	doorMinWidth  = 12
	doorMinHeight = 4
)

// DoorArt draws the door opening: a frame with the panel rolled up by
// openness, 0 closed to 1 fully open.
type DoorArt struct {
	Width    int // Inner width in cells
	Height   int // Inner height in rows
	Dragging bool
}

// PanelRows returns how many rows of panel are drawn at openness.
func (d DoorArt) PanelRows(openness float64) int {
	h := d.height()
	rows := int(math.Round(float64(h) * (1 - openness)))
	if rows < 0 {
		return 0
	}
	if rows > h {
		return h
	}
	return rows
}

// Render returns the door as lines of text.
func (d DoorArt) Render(openness float64) string {
	w, h := d.width(), d.height()
	rows := d.PanelRows(openness)

	color := PanelColor
	if d.Dragging {
		color = DragColor
	}
	panel := lipgloss.NewStyle().Foreground(color)

	var b strings.Builder
	b.WriteString(FrameStyle.Render("╔" + strings.Repeat("═", w) + "╗"))
	b.WriteByte('\n')
	for i := 0; i < h; i++ {
		var inner string
		switch {
		case i < rows-1:
			inner = panel.Render(strings.Repeat("▤", w))
		case i == rows-1:
			// Bottom rail with handle
			inner = panel.Render(strings.Repeat("▁", (w-2)/2) + "━━" + strings.Repeat("▁", w-2-(w-2)/2))
		default:
			inner = strings.Repeat(" ", w)
		}
		b.WriteString(FrameStyle.Render("║"))
		b.WriteString(inner)
		b.WriteString(FrameStyle.Render("║"))
		b.WriteByte('\n')
	}
	b.WriteString(FrameStyle.Render("╩" + strings.Repeat("═", w) + "╩"))
	return b.String()
}

func (d DoorArt) width() int {
	if d.Width < doorMinWidth {
		return doorMinWidth
	}
	return d.Width
}

func (d DoorArt) height() int {
	if d.Height < doorMinHeight {
		return doorMinHeight
	}
	return d.Height
}
