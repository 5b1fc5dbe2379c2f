package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/garagectl/internal/remote"
)

// Publisher is a source of view changes. *remote.Controller implements it.
type Publisher interface {
	Subscribe(fn remote.ViewListener) func()
}

// Run shows the door screen until the user quits or ctx ends.
func Run(ctx context.Context, door Door, views Publisher, endpoint string, params ParamsFunc, opts ...tea.ProgramOption) error {
	model := NewModel(door, endpoint, params)

	opts = append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	}, opts...)
	p := tea.NewProgram(model, opts...)

	pump := newViewPump(p.Send)
	defer pump.stop()
	unsubscribe := views.Subscribe(pump.offer)
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// viewPump forwards views to the program without blocking the caller.
// Program.Send blocks while Update runs, and listeners can fire from
// Update. Only the newest pending view is kept.
type viewPump struct {
	pending chan remote.View
	done    chan struct{}
}

func newViewPump(send func(tea.Msg)) *viewPump {
	p := &viewPump{
		pending: make(chan remote.View, 1),
		done:    make(chan struct{}),
	}
	go func() {
		for {
			select {
			case v := <-p.pending:
				send(ViewMsg(v))
			case <-p.done:
				return
			}
		}
	}()
	return p
}

func (p *viewPump) offer(v remote.View) {
	select {
	case p.pending <- v:
		return
	default:
	}
	select {
	case <-p.pending:
	default:
	}
	select {
	case p.pending <- v:
	default:
	}
}

func (p *viewPump) stop() {
	close(p.done)
}
