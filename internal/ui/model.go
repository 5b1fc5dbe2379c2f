package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/garagectl/internal/command"
	"github.com/muurk/garagectl/internal/deviceerr"
	"github.com/muurk/garagectl/internal/gesture"
	"github.com/muurk/garagectl/internal/reconcile"
	"github.com/muurk/garagectl/internal/remote"
	"github.com/muurk/garagectl/internal/telemetry"
)

// Door is the client core as seen by the screen. *remote.Controller
// implements it.
type Door interface {
	View() remote.View
	Send(cmd command.Command) bool
	Primary() command.Command
	Reconnect() error
	BeginGesture(x, y float64)
	UpdateGesture(x, y float64) float64
	EndGesture(x, y float64) gesture.Result
	CancelGesture()
	Arrived(token uint64) bool
	SetGestureParams(p gesture.Params)
}

// ParamsFunc returns gesture thresholds for a screen height in rows.
type ParamsFunc func(height float64) gesture.Params

// ViewMsg carries a fresh view from the controller.
type ViewMsg remote.View

type frameMsg time.Time

const busyNotice = "finish the drag first"

// Model is the interactive door screen.
type Model struct {
	door     Door
	params   ParamsFunc
	endpoint string

	view      remote.View
	anim      Animator
	animating bool
	dragging  bool
	notice    string

	Width  int
	Height int

	live   *Gauge
	target *Gauge
	keys   keyMap
	help   help.Model
}

// NewModel creates the screen for door. endpoint is shown in the header.
func NewModel(door Door, endpoint string, params ParamsFunc) Model {
	if params == nil {
		params = func(h float64) gesture.Params {
			return gesture.ParamsForHeight(h, gesture.DefaultDragFraction)
		}
	}
	width, height := GetTerminalSize()
	view := door.View()
	return Model{
		door:     door,
		params:   params,
		endpoint: endpoint,
		view:     view,
		anim:     NewAnimator(view.SetpointProgress),
		Width:    width,
		Height:   height,
		live:     NewGauge("Door", width, "#626262", "#B0B0B0"),
		target:   NewGauge("Target", width, "#5A56E0", "#EE6FF8"),
		keys:     newKeyMap(),
		help:     help.New(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle("garagectl")
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.door.SetGestureParams(m.params(float64(msg.Height)))
		m.live.SetWidth(clampWidth(msg.Width))
		m.target.SetWidth(clampWidth(msg.Width))
		m.help.Width = msg.Width
		return m, nil

	case ViewMsg:
		m.view = remote.View(msg)
		return m, m.syncAnimation()

	case frameMsg:
		if m.anim.Step() {
			m.animating = false
			m.arrive()
			return m, nil
		}
		return m, frame()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.dragging {
			m.door.CancelGesture()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		if m.dragging {
			m.door.CancelGesture()
			m.dragging = false
		}
	case key.Matches(msg, m.keys.Open):
		m.send(command.Open)
	case key.Matches(msg, m.keys.Close):
		m.send(command.Close)
	case key.Matches(msg, m.keys.Toggle):
		m.send(command.Toggle)
	case key.Matches(msg, m.keys.Primary):
		if m.dragging {
			m.notice = busyNotice
		} else {
			m.door.Primary()
		}
	case key.Matches(msg, m.keys.Reconnect):
		if err := m.door.Reconnect(); err != nil {
			m.notice = deviceerr.Message(err)
		}
	default:
		return m, nil
	}
	return m.refresh()
}

func (m *Model) send(cmd command.Command) {
	if !m.door.Send(cmd) {
		m.notice = busyNotice
	}
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	x, y := float64(msg.X), float64(msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		m.notice = ""
		m.door.BeginGesture(x, y)
		m.dragging = true
	case tea.MouseActionMotion:
		if !m.dragging {
			return m, nil
		}
		m.door.UpdateGesture(x, y)
	case tea.MouseActionRelease:
		if !m.dragging {
			return m, nil
		}
		m.door.EndGesture(x, y)
		m.dragging = false
	default:
		return m, nil
	}
	return m.refresh()
}

// refresh pulls the view synchronously so input feels immediate.
func (m Model) refresh() (tea.Model, tea.Cmd) {
	m.view = m.door.View()
	return m, m.syncAnimation()
}

// syncAnimation retargets the spring and starts frames when needed.
func (m *Model) syncAnimation() tea.Cmd {
	if m.view.Phase == reconcile.PhaseGesturing {
		m.anim.Jump(m.view.SetpointProgress)
		return nil
	}
	m.anim.Target = m.view.SetpointProgress
	if m.anim.Settled() {
		m.arrive()
		return nil
	}
	if m.animating {
		return nil
	}
	m.animating = true
	return frame()
}

func (m *Model) arrive() {
	if m.view.Phase == reconcile.PhaseSettling {
		m.door.Arrived(m.view.Token)
	}
}

func frame() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Displayed returns the door position currently drawn.
func (m Model) Displayed() float64 {
	return m.anim.Display()
}

// View implements tea.Model
func (m Model) View() string {
	width := clampWidth(m.Width)

	endpoint := m.endpoint
	if endpoint == "" {
		endpoint = "no endpoint configured"
	}
	status := m.view.Status
	if status == "" {
		status = "waiting for telemetry"
	}
	header := NewHeader("Garage door", endpoint,
		Detail{Key: "Link", Value: m.renderLink()},
		Detail{Key: "Status", Value: status},
	).SetWidth(width).Render()

	// Rows left after header, gauges, notice and help
	doorHeight := m.Height - 16
	if doorHeight > 14 {
		doorHeight = 14
	}
	art := DoorArt{
		Width:    width - 8,
		Height:   doorHeight,
		Dragging: m.view.Phase == reconcile.PhaseGesturing,
	}
	door := lipgloss.NewStyle().PaddingLeft(2).Render(art.Render(m.anim.Display()))

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(door)
	b.WriteString("\n\n")
	b.WriteString(m.live.Render(m.view.OpenProgress))
	b.WriteString("\n")
	b.WriteString(m.target.Render(m.anim.Display()))
	b.WriteString("\n\n")

	switch {
	case m.notice != "":
		b.WriteString(NoticeStyle.Render(m.notice))
	case m.view.Error != "":
		b.WriteString(ErrorMessageStyle.PaddingLeft(2).Render("Error: " + m.view.Error))
	default:
		b.WriteString(SubtitleStyle.Render(m.renderHint()))
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderLink() string {
	var color lipgloss.Color
	switch m.view.State {
	case telemetry.StateConnected:
		color = SuccessColor
	case telemetry.StateConnecting:
		color = WarningColor
	case telemetry.StateError:
		color = ErrorColor
	default:
		color = MutedColor
		if m.view.Error != "" {
			color = ErrorColor
		}
	}
	return lipgloss.NewStyle().Foreground(color).Render(StateMarker) + " " + m.view.State.String()
}

func (m Model) renderHint() string {
	switch m.view.Phase {
	case reconcile.PhaseGesturing:
		return fmt.Sprintf("dragging %3.0f%%, release to commit", m.view.SetpointProgress*100)
	case reconcile.PhaseSettling:
		return "moving to target (" + m.view.Source.String() + ")"
	}
	return "drag the door or tap it to toggle"
}
