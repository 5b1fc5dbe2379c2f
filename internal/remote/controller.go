package remote

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/muurk/garagectl/internal/command"
	"github.com/muurk/garagectl/internal/credentials"
	"github.com/muurk/garagectl/internal/deviceerr"
	"github.com/muurk/garagectl/internal/gesture"
	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/reconcile"
	"github.com/muurk/garagectl/internal/telemetry"
	"go.uber.org/zap"
)

// Options configures a Controller. Zero values select defaults.
type Options struct {
	Transport      telemetry.Transport
	Params         gesture.Params
	CommandTimeout time.Duration
	HTTPClient     *http.Client
}

// View is everything a renderer needs for one frame.
type View struct {
	// OpenProgress is the live door position, 0 when unknown
	OpenProgress float64
	// SetpointProgress is the reconciled target
	SetpointProgress float64

	Connected bool
	State     telemetry.State
	Error     string
	Status    string // Last raw status, e.g. "moving_up"

	Phase  reconcile.Phase
	Source reconcile.Source
	Token  uint64
}

// ViewListener receives the view after any component changes.
type ViewListener func(View)

// Controller wires the credential store, telemetry channel, command
// dispatcher and position reconciler together.
type Controller struct {
	Store      *credentials.Store
	Channel    *telemetry.Channel
	Dispatcher *command.Dispatcher
	Reconciler *reconcile.Reconciler

	mu        sync.Mutex
	started   bool
	unsubs    []func()
	listeners map[int]ViewListener
	nextID    int
}

// New builds a controller around store. Nothing connects until Start.
func New(store *credentials.Store, opts Options) *Controller {
	dispatcher := command.NewDispatcher(store)
	if opts.CommandTimeout > 0 {
		dispatcher.Timeout = opts.CommandTimeout
	}
	if opts.HTTPClient != nil {
		dispatcher.HTTPClient = opts.HTTPClient
	}
	params := opts.Params
	if params.DragScale == 0 {
		params = gesture.ParamsForHeight(1, gesture.DefaultDragFraction)
	}

	return &Controller{
		Store:      store,
		Channel:    telemetry.NewChannel(store, opts.Transport),
		Dispatcher: dispatcher,
		Reconciler: reconcile.New(dispatcher, params),
		listeners:  make(map[int]ViewListener),
	}
}

// Start subscribes the components to each other and connects. A
// configuration error is returned but leaves the controller running, so
// saving credentials later connects automatically.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.unsubs = append(c.unsubs,
		c.Channel.OnStatus(func(ev telemetry.StatusEvent) {
			c.Reconciler.ApplyStatus(ev)
			c.publish()
		}),
		c.Channel.OnState(func(telemetry.Snapshot) { c.publish() }),
		c.Reconciler.Subscribe(func(reconcile.Snapshot) { c.publish() }),
		c.Channel.Follow(c.Store),
	)
	c.mu.Unlock()

	err := c.Channel.Connect()
	if err != nil && deviceerr.IsConfigError(err) {
		logging.Info("Waiting for credentials before connecting")
	}
	return err
}

// Reconnect drops the current connection and dials again.
func (c *Controller) Reconnect() error {
	c.Channel.Disconnect()
	return c.Channel.Connect()
}

// Stop disconnects, detaches listeners and waits for in-flight commands.
func (c *Controller) Stop() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.started = false
	c.mu.Unlock()

	for i := len(unsubs) - 1; i >= 0; i-- {
		unsubs[i]()
	}
	c.Channel.Close()
	c.Dispatcher.Wait()
}

// Send applies cmd optimistically and dispatches it.
func (c *Controller) Send(cmd command.Command) bool {
	ok := c.Reconciler.Command(cmd)
	if !ok {
		logging.Debug("Command ignored during gesture", zap.String("command", cmd.String()))
	}
	return ok
}

// Primary sends the command the single main button maps to.
func (c *Controller) Primary() command.Command {
	return c.Reconciler.Primary()
}

// BeginGesture starts a drag at screen coordinates x, y.
func (c *Controller) BeginGesture(x, y float64) { c.Reconciler.BeginGesture(x, y) }

// UpdateGesture moves the drag and returns the dragged progress.
func (c *Controller) UpdateGesture(x, y float64) float64 { return c.Reconciler.UpdateGesture(x, y) }

// EndGesture releases the drag and dispatches whatever it resolved to.
func (c *Controller) EndGesture(x, y float64) gesture.Result { return c.Reconciler.EndGesture(x, y) }

// CancelGesture abandons the drag.
func (c *Controller) CancelGesture() { c.Reconciler.CancelGesture() }

// Arrived reports that the renderer reached the target for token.
func (c *Controller) Arrived(token uint64) bool { return c.Reconciler.Arrived(token) }

// SetGestureParams rescales gestures, e.g. after a resize.
func (c *Controller) SetGestureParams(p gesture.Params) { c.Reconciler.SetParams(p) }

// View returns the current view.
func (c *Controller) View() View {
	snap := c.Channel.Snapshot()
	rec := c.Reconciler.Snapshot()

	v := View{
		SetpointProgress: rec.Value,
		Connected:        snap.IsConnected(),
		State:            snap.State,
		Error:            snap.ErrorMessage(),
		Phase:            rec.Phase,
		Source:           rec.Source,
		Token:            rec.Token,
	}
	if snap.Status != nil {
		v.Status = snap.Status.Status
		v.OpenProgress = gesture.Clamp01(snap.Status.PositionOr(0))
	}
	return v
}

// Subscribe registers fn for view changes. Calls may arrive from any
// goroutine.
func (c *Controller) Subscribe(fn ViewListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) publish() {
	c.mu.Lock()
	if len(c.listeners) == 0 {
		c.mu.Unlock()
		return
	}
	listeners := make([]ViewListener, 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	v := c.View()
	for _, fn := range listeners {
		fn(v)
	}
}

// FetchStatus connects once and returns the first status event, or the
// error that ended the attempt.
func FetchStatus(ctx context.Context, creds telemetry.CredentialSource, transport telemetry.Transport) (telemetry.StatusEvent, error) {
	ch := telemetry.NewChannel(creds, transport)
	defer ch.Close()

	events := make(chan telemetry.StatusEvent, 1)
	failures := make(chan error, 1)
	defer ch.OnStatus(func(ev telemetry.StatusEvent) {
		select {
		case events <- ev:
		default:
		}
	})()
	defer ch.OnState(func(s telemetry.Snapshot) {
		if s.Err != nil && (s.State == telemetry.StateDisconnected || deviceerr.IsDecodeError(s.Err)) {
			select {
			case failures <- s.Err:
			default:
			}
		}
	})()

	if err := ch.Connect(); err != nil {
		return telemetry.StatusEvent{}, err
	}

	select {
	case ev := <-events:
		return ev, nil
	case err := <-failures:
		return telemetry.StatusEvent{}, err
	case <-ctx.Done():
		return telemetry.StatusEvent{}, ctx.Err()
	}
}
