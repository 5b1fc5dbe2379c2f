package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoorArtPanelRows(t *testing.T) {
	art := DoorArt{Width: 20, Height: 10}
	assert.Equal(t, 10, art.PanelRows(0))
	assert.Equal(t, 5, art.PanelRows(0.5))
	assert.Equal(t, 0, art.PanelRows(1))
	assert.Equal(t, 10, art.PanelRows(-0.2))
	assert.Equal(t, 0, art.PanelRows(1.3))

	// Undersized doors are drawn at the minimum
	tiny := DoorArt{Width: 1, Height: 1}
	assert.Equal(t, doorMinHeight, tiny.PanelRows(0))
}

func TestDoorArtRender(t *testing.T) {
	art := DoorArt{Width: 20, Height: 6}

	closed := strings.Split(art.Render(0), "\n")
	assert.Len(t, closed, 8)
	assert.Contains(t, closed[0], strings.Repeat("═", 20))
	assert.Contains(t, closed[5], "▤")
	assert.Contains(t, closed[6], "━━")
	assert.NotContains(t, closed[6], "▤")

	open := art.Render(1)
	assert.NotContains(t, open, "▤")
	assert.NotContains(t, open, "━━")
}

func TestAnimatorSettlesOnTarget(t *testing.T) {
	a := NewAnimator(0)
	assert.True(t, a.Settled())

	a.Target = 1
	assert.False(t, a.Settled())

	frames := 0
	for !a.Step() {
		frames++
		if frames > 1000 {
			t.Fatal("animator never settled")
		}
	}
	assert.Greater(t, frames, 5)
	assert.Equal(t, 1.0, a.Position)
	assert.Equal(t, 0.0, a.Velocity)
}

func TestAnimatorJumpAndDisplay(t *testing.T) {
	a := NewAnimator(0.2)
	a.Jump(0.7)
	assert.True(t, a.Settled())
	assert.Equal(t, 0.7, a.Display())

	a.Position = 1.04
	assert.Equal(t, 1.0, a.Display())
	a.Position = -0.01
	assert.Equal(t, 0.0, a.Display())
}

func TestGaugeRender(t *testing.T) {
	g := NewGauge("Door", 80, "#626262", "#B0B0B0")
	assert.Equal(t, 60, g.Width())
	assert.Equal(t, 10, g.SetWidth(15).Width())

	out := g.Render(0.42)
	assert.Contains(t, out, "Door")
	assert.Contains(t, out, "42%")
	assert.Contains(t, g.Render(7), "100%")
	assert.Contains(t, g.Render(-1), "  0%")
}

func TestResultRender(t *testing.T) {
	out := NewSuccessResult("Credentials saved",
		Detail{Key: "Endpoint", Value: "http://door.test"},
		Detail{Key: "API key", Value: "set"},
	).SetWidth(80).Render()

	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "Credentials saved")
	assert.Less(t, strings.Index(out, "Endpoint:"), strings.Index(out, "API key:"))

	failure := NewFailureResult("Command failed", errors.New("device answered HTTP 401"),
		"Check the API key").SetWidth(80).Render()
	assert.Contains(t, failure, "FAILED")
	assert.Contains(t, failure, "device answered HTTP 401")
	assert.Contains(t, failure, "Troubleshooting:")
	assert.Contains(t, failure, "Check the API key")

	warning := NewWarningResult("No devices found").AddDetail("Service", "_garagedoor._tcp").SetWidth(80).Render()
	assert.Contains(t, warning, "WARNING")
	assert.Contains(t, warning, "_garagedoor._tcp")
}

func TestHeaderRender(t *testing.T) {
	out := NewHeader("Garage door", "http://door.test", Detail{Key: "Status", Value: "open"}).
		SetWidth(60).Render()
	assert.Contains(t, out, "GARAGE DOOR")
	assert.Contains(t, out, "http://door.test")
	assert.Contains(t, out, "Status:")

	bare := NewHeader("garagectl", "").SetWidth(60).Render()
	assert.Contains(t, bare, "GARAGECTL")
	assert.NotContains(t, bare, ":")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, "Clear credentials", "The endpoint and API key are removed")
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Clear credentials")
			assert.Contains(t, out.String(), "Continue? [y/N]")
		})
	}
}

func TestPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out)
	p.PrintSuccess("Door opening", Detail{Key: "Command", Value: "open"})
	p.PrintError("Command failed", errors.New("boom"))
	p.Newline()

	s := out.String()
	assert.Contains(t, s, "Door opening")
	assert.Contains(t, s, "Command:")
	assert.Contains(t, s, "boom")
	assert.True(t, strings.HasSuffix(s, "\n\n"))
}
