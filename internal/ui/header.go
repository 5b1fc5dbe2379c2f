package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is a banner with a title, a subtitle and key/value parameters.
// The TUI shows one above the door; CLI commands print one before output.
type Header struct {
	Title    string   // e.g., "GARAGE DOOR"
	Subtitle string   // e.g., the endpoint
	Params   []Detail // Shown in order
	Width    int
}

// NewHeader creates a new header at the terminal width
func NewHeader(title, subtitle string, params ...Detail) *Header {
	return &Header{
		Title:    title,
		Subtitle: subtitle,
		Params:   params,
		Width:    GetTerminalWidth(),
	}
}

// SetWidth sets the width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	sections := []string{TitleStyle.Render(strings.ToUpper(h.Title))}
	if h.Subtitle != "" {
		sections = append(sections, SubtitleStyle.Render(h.Subtitle))
	}

	if len(h.Params) > 0 {
		dividerWidth := width - 6 // Account for border and padding
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		sections = append(sections, RenderHorizontalDivider(dividerWidth, "─"))

		for _, p := range h.Params {
			sections = append(sections, ParamKeyStyle.Render(p.Key+":")+" "+ParamValueStyle.Render(p.Value))
		}
	}

	return BorderStyle(width).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
